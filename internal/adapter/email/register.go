package email

import (
	"fmt"
	"strconv"

	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/port/notifier"
)

func init() {
	notifier.Register(providerName, func(config map[string]string) (notifier.Notifier, error) {
		port := 587
		if v := config["port"]; v != "" {
			p, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("email: invalid port %q", v)
			}
			port = p
		}
		return NewNotifier(config["host"], port, config["from"], config["to"], config["password"]), nil
	})
}
