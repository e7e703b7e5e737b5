package jaeger

import (
	"go.opentelemetry.io/otel/exporters/jaeger"

	"github.com/unihub/notify-svc/internal/config"
)

func MustNewJaeger(cfg *config.JaegerConfig) *jaeger.Exporter {
	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(
		jaeger.WithEndpoint(cfg.Endpoint),
	))
	if err != nil {
		panic(err)
	}

	return exp
}
