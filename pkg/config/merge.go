package config

import "dario.cat/mergo"

// mergeHooks merges user-supplied hook configuration over the built-in
// defaults. Each hook sub-config is a pointer; an absent one in the user
// file leaves the corresponding default untouched.
func mergeHooks(dst *HooksConfig, src *HooksConfig) error {
	if src.Slack != nil {
		if dst.Slack == nil {
			dst.Slack = &SlackHookConfig{}
		}
		if err := mergo.Merge(dst.Slack, *src.Slack, mergo.WithOverride); err != nil {
			return err
		}
	}
	if src.Telemetry != nil {
		if dst.Telemetry == nil {
			dst.Telemetry = &TelemetryHookConfig{}
		}
		if err := mergo.Merge(dst.Telemetry, *src.Telemetry, mergo.WithOverride); err != nil {
			return err
		}
	}
	return nil
}
