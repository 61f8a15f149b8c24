// ABOUTME: all_agents default merge semantics (spec §4.8): arrays concat for
// ABOUTME: tools/delegates_to, maps merge for parameters/headers, scalars agent-wins.

package config

func mergeAgent(defaults *rawAgent, agent rawAgent) rawAgent {
	if defaults == nil {
		return agent
	}

	merged := agent

	if merged.Description == "" {
		merged.Description = defaults.Description
	}
	if merged.Model == "" {
		merged.Model = defaults.Model
	}
	if merged.Provider == "" {
		merged.Provider = defaults.Provider
	}
	if merged.BaseURL == "" {
		merged.BaseURL = defaults.BaseURL
	}
	if merged.APIVersion == "" {
		merged.APIVersion = defaults.APIVersion
	}
	if merged.ContextWindow == 0 {
		merged.ContextWindow = defaults.ContextWindow
	}
	if merged.IncludeDefaultTools == nil {
		merged.IncludeDefaultTools = defaults.IncludeDefaultTools
	}
	if merged.BypassPermissions == nil {
		merged.BypassPermissions = defaults.BypassPermissions
	}
	if merged.TimeoutSeconds == nil {
		merged.TimeoutSeconds = defaults.TimeoutSeconds
	}

	merged.Tools = concatTools(defaults.Tools, agent.Tools)
	merged.DelegatesTo = concatStrings(defaults.DelegatesTo, agent.DelegatesTo)
	merged.MCPServers = concatMCPServers(defaults.MCPServers, agent.MCPServers)
	merged.Parameters = mergeAnyMap(defaults.Parameters, agent.Parameters)
	merged.Headers = mergeStringMap(defaults.Headers, agent.Headers)

	return merged
}

func concatTools(a, b []rawTool) []rawTool {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	out := make([]rawTool, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out
}

func concatStrings(a, b []string) []string {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out
}

func concatMCPServers(a, b []rawMCPServer) []rawMCPServer {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	out := make([]rawMCPServer, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out
}

func mergeAnyMap(a, b map[string]any) map[string]any {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make(map[string]any, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

func mergeStringMap(a, b map[string]string) map[string]string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make(map[string]string, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}
