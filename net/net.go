package net

import (
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"chainode/config"
)

var client = resty.New()

var rootConfig *config.WebhookConfig

func Init(cfg *config.WebhookConfig) {
	rootConfig = cfg
}

// ReportWarning posts the message to the configured warning webhook. Delivery
// is best-effort; failures are logged and dropped.
func ReportWarning(message string) {
	if rootConfig == nil || rootConfig.WarningWebhook == "" {
		return
	}

	_, err := client.R().SetBody(map[string]string{"text": message}).Post(rootConfig.WarningWebhook)
	if err != nil {
		zap.S().Errorf("Report warning error: [%s]", err.Error())
	}
}
