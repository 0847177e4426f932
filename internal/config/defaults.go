package config

func Defaults() *Settings {
	return &Settings{
		Watchlist: WatchlistSettings{
			Path: "config.json",
		},
		Relay: RelaySettings{
			HTTPTimeoutSeconds: 120,
		},
		Log: LogSettings{
			Level:  "info",
			Format: "text",
		},
		History: HistorySettings{
			Enabled: false,
			DBPath:  "~/.relaybot/history.db",
		},
		Metrics: MetricsSettings{
			Enabled: false,
			Listen:  "127.0.0.1:9464",
		},
	}
}
