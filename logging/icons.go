package logging

// Icons used by pretty output.
const (
	IconSuccess = "✓"
	IconError   = "✗"
	IconWarning = "⚠"
	IconInfo    = "ℹ"
	IconRunning = "↻"
	IconBullet  = "•"
)
