package main

import (
	"context"
	"os"
	"time"

	"bannerssb/cmd/banner-cli/commands"
	"bannerssb/lib/serviceutil"
	"bannerssb/lib/telemetry"
)

func main() {
	ctx := serviceutil.SignalContext()

	tel, err := telemetry.SetupFromEnv(ctx, "banner-cli")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	if tel.Enabled() {
		telemetry.InstrumentPerfStats(ctx, time.Second*15)
	}

	code := commands.ExecuteContext(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	err = tel.Shutdown(shutdownCtx)
	if err != nil {
		serviceutil.Fatal("failed to flush telemetry", err)
	}
	os.Exit(code)
}
