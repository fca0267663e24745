package notify

import (
	"github.com/oshokin/garage-sentinel/internal/config"
)

// FromConfig builds the transport chain. The log transport is always present;
// the others are added when their key setting is filled in.
// The returned function releases transport resources.
func FromConfig(cfg config.Notify) (Notifier, func(), error) {
	chain := Multi{Log{}}
	release := func() {}

	if cfg.Command.Program != "" {
		command, err := NewCommand(cfg.Command)
		if err != nil {
			return nil, nil, err
		}

		chain = append(chain, command)
	}

	if cfg.SMTP.Server != "" {
		smtp, err := NewSMTP(cfg.SMTP)
		if err != nil {
			return nil, nil, err
		}

		chain = append(chain, smtp)
	}

	if cfg.MQTT.Broker != "" {
		broker, err := NewMQTT(cfg.MQTT)
		if err != nil {
			return nil, nil, err
		}

		chain = append(chain, broker)
		release = broker.Close
	}

	return chain, release, nil
}
