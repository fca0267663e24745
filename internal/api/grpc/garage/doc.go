// Package garage implements the read-only gRPC status API of the sentinel.
//
// The service is described by hand rather than generated: its single method
// takes google.protobuf.Empty and returns a google.protobuf.Struct, so well
// known types cover the whole wire contract. The standard grpc.health.v1
// service reports SERVING while no fault flag is raised.
package garage
