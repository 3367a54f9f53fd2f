package configs

const (
	DefaultAgentName     = "fakeagent"
	DefaultActivityCount = 3
)

// AgentConfig describes what the simulated agent says and how much of it.
type AgentConfig struct {
	AgentName     string
	ActivityCount int
	Filler        []string
}

func LoadConfig() *AgentConfig {
	filler := make([]string, len(LoremVariants))
	copy(filler, LoremVariants)
	return &AgentConfig{
		AgentName:     DefaultAgentName,
		ActivityCount: DefaultActivityCount,
		Filler:        filler,
	}
}
