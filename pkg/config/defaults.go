package config

const (
	defaultChatEndpoint = "http://localhost:8081/functions/v1/ai-chat"
	defaultChatTimeout  = "5m"

	defaultServerListen = ":8081"

	defaultRelayUpstream = "http://localhost:11434"
	defaultRelayModel    = "llama3.2"

	defaultEventsTopic       = "jlsite.quotations"
	defaultEventsRedisStream = "jlsite:events"

	defaultClientAPITarget = "http://localhost:8081"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Chat: ChatConfig{
			Endpoint: defaultChatEndpoint,
			Timeout:  defaultChatTimeout,
		},
		Server: ServerConfig{
			Listen: defaultServerListen,
		},
		Relay: RelayConfig{
			Upstream: defaultRelayUpstream,
			Model:    defaultRelayModel,
		},
		Events: EventsConfig{
			Topic:       defaultEventsTopic,
			RedisStream: defaultEventsRedisStream,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
	}
}
