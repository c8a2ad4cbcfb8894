package config

const (
	defaultSummaryMarker     = "** Hidden by plexhush. Watch the episode to reveal. **"
	defaultTitleMarker       = "Hidden until watched"
	defaultInProgressMarker  = "** plexhush update in progress **"
	defaultQuiescenceSeconds = 2.0
	defaultMaxQuiesceSeconds = 60.0
	defaultRetryRounds       = 3
	defaultCachePath         = "~/.local/share/plexhush/originals.db"
	defaultLockPath          = "~/.local/share/plexhush/run.lock"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultNtfyTimeout       = 10

	// placeholderToken is the sample file's token value; Load refuses it so a
	// half-edited config never reaches the server.
	placeholderToken = "your-plex-token-here"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Plex: Plex{
			Libraries: []string{"TV Shows"},
		},
		Hide: Hide{
			Summaries:        true,
			Titles:           false,
			Thumbnails:       false,
			SummaryMarker:    defaultSummaryMarker,
			TitleMarker:      defaultTitleMarker,
			InProgressMarker: defaultInProgressMarker,
			LockEditedFields: true,
		},
		Run: Run{
			QuiescenceSeconds: defaultQuiescenceSeconds,
			MaxQuiesceSeconds: defaultMaxQuiesceSeconds,
			RetryRounds:       defaultRetryRounds,
			CachePath:         defaultCachePath,
			LockPath:          defaultLockPath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
		},
	}
}
