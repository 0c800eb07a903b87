package logger

import "github.com/sirupsen/logrus"

// Log глобальный логгер приложения. До Init пишет текстом с уровнем info.
var Log = logrus.New()

// Init настраивает уровень и формат: JSON в production, текст в остальных окружениях.
func Init(level string, production bool) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	if production {
		Log.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	Log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

