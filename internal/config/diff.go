package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	TargetLangChanged bool
	NewTargetLang     string

	DefaultPresetChanged bool
	MaxRetriesChanged    bool
	VerifierTogglesChanged bool
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restarting an
// in-flight orchestration run.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Translation.TargetLang != new.Translation.TargetLang {
		d.TargetLangChanged = true
		d.NewTargetLang = new.Translation.TargetLang
	}

	if old.Translation.DefaultPreset != new.Translation.DefaultPreset {
		d.DefaultPresetChanged = true
	}

	if !eqIntPtr(old.Translation.MaxRetries, new.Translation.MaxRetries) {
		d.MaxRetriesChanged = true
	}

	if old.Translation.CheckSentenceCompletion != new.Translation.CheckSentenceCompletion ||
		old.Translation.CheckLengthBounds != new.Translation.CheckLengthBounds ||
		old.Translation.ModelAssistedVerify != new.Translation.ModelAssistedVerify {
		d.VerifierTogglesChanged = true
	}

	return d
}

// eqIntPtr compares two optional ints by value; nil only equals nil, since
// "unset" and "explicitly zero" mean different retry budgets.
func eqIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
