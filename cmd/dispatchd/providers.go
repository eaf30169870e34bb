package main

// Provider blank imports — each import activates a self-registering adapter.
// Add new providers here as they are implemented.

import (
	_ "github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/adapter/discord"
	_ "github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/adapter/email"
	_ "github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/adapter/notionpm"
	_ "github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/adapter/slack"
)
