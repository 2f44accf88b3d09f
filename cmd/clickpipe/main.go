package main

import (
	"context"
	"flag"
	"os"

	"clickpipe/internal/conf"
	"clickpipe/internal/infra/eventbus"
	"clickpipe/internal/infra/logging"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/env"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/tracing"
	"github.com/go-kratos/kratos/v2/transport/http"

	_ "go.uber.org/automaxprocs"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name is the name of the compiled software.
	Name = "clickpipe"
	// Version is the version of the compiled software.
	Version string
	// flagconf is the config flag.
	flagconf string

	id, _ = os.Hostname()
)

func init() {
	flag.StringVar(&flagconf, "conf", "../../configs", "config path, eg: -conf config.yaml")
}

// newApp runs the dispatcher around the HTTP server: it starts first and
// drains only after in-flight requests have finished recording clicks.
func newApp(logger log.Logger, hs *http.Server, dispatcher *eventbus.Dispatcher, c *conf.Channel) *kratos.App {
	return kratos.New(
		kratos.ID(id),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Metadata(map[string]string{}),
		kratos.Logger(logger),
		kratos.Server(
			hs,
		),
		kratos.BeforeStart(dispatcher.Start),
		kratos.AfterStop(func(context.Context) error {
			// The app context is already cancelled here.
			ctx := context.Background()
			if c.DrainTimeout.Duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, c.DrainTimeout.Duration)
				defer cancel()
			}
			return dispatcher.Stop(ctx)
		}),
	)
}

func main() {
	flag.Parse()
	c := config.New(
		config.WithSource(
			env.NewSource("CLICKPIPE_"),
			file.NewSource(flagconf),
		),
	)
	defer c.Close()

	if err := c.Load(); err != nil {
		panic(err)
	}

	bc := conf.Default()
	if err := c.Scan(bc); err != nil {
		panic(err)
	}

	zl, err := logging.New(bc.Log)
	if err != nil {
		panic(err)
	}
	zlogger := logging.NewZapLogger(zl)
	defer func() { _ = zlogger.Sync() }()

	logger := log.With(zlogger,
		"ts", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
		"service.id", id,
		"service.name", Name,
		"service.version", Version,
		"trace.id", tracing.TraceID(),
		"span.id", tracing.SpanID(),
	)

	app, cleanup, err := wireApp(bc.Server, bc.Data, bc.Link, bc.Channel, logger)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	// start and wait for stop signal
	if err := app.Run(); err != nil {
		panic(err)
	}
}
