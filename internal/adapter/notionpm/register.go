package notionpm

import "github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/port/taskregistry"

func init() {
	taskregistry.Register(providerName, func(cfg map[string]string) (taskregistry.Provider, error) {
		return NewProvider(cfg)
	})
}
