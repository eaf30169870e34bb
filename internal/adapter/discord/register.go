package discord

import "github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/port/notifier"

func init() {
	notifier.Register(providerName, func(config map[string]string) (notifier.Notifier, error) {
		return NewNotifier(config["webhook_url"]), nil
	})
}
