package runner

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"signalengine/src/connectors"
	"signalengine/src/database"
	"signalengine/src/engine"
	"signalengine/src/report"
	"signalengine/src/repository"
)

// Report builds the end-of-day report of day from the trade log and sends it.
func Report(ctx context.Context, day time.Time, log *logrus.Entry) error {
	if err := database.InitMainDB(); err != nil {
		log.WithError(err).Error("Failed to connect to main database")
		return err
	}
	notifier := connectors.NewDiscordNotifier(connectors.GetConfig(), log)
	return engine.SendDailyReport(ctx, repository.NewTradeLogRepository(), notifier, report.GetConfig().Dir, day, log)
}
