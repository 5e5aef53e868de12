package commands

import (
	"context"

	"github.com/DrDelphi/LuckyOneBot/bot"
	"github.com/DrDelphi/LuckyOneBot/poller"
	"github.com/ethereum/go-ethereum/common"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/pkg/errors"
)

var errNoBotToken = errors.New("no Telegram bot token configured")

// RunBot starts the Telegram announcer on top of a running round poller and blocks until the context is done
func (r *Runner) RunBot(ctx context.Context) error {
	if r.cfg.Bot.Token == "" {
		return errNoBotToken
	}

	api, err := bot.NewTelegramAPI(r.cfg.Bot.Token)
	if err != nil {
		return err
	}
	log.Info("authorized on telegram", "account", api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates, err := api.GetUpdatesChan(u)
	if err != nil {
		return errors.Wrap(err, "can not get Telegram bot updates")
	}
	updates.Clear()

	roundPoller, err := poller.NewRoundPoller(NewPollerArgs(r.cfg, r.manager, common.Address{}))
	if err != nil {
		return err
	}

	announcer, err := bot.NewBot(bot.ArgsBot{
		Sender:  api,
		Updates: updates,
		Config:  r.cfg,
		Source:  roundPoller,
		History: r.history,
		Balance: r.manager,
	})
	if err != nil {
		return err
	}

	announcer.StartTasks(ctx)
	err = roundPoller.Start(ctx)
	if err != nil {
		return err
	}

	r.println("🤖 Bot started, press Ctrl+C to stop")
	<-ctx.Done()

	api.StopReceivingUpdates()
	roundPoller.Stop()
	announcer.Wait()
	r.println("👋 Bot stopped")

	return nil
}
