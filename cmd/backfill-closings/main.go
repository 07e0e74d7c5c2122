// Command backfill-closings records automatic closings for a range of past
// days, for example after the till was offline over a long weekend.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"tillledger/internal/app"
	"tillledger/internal/config"
	"tillledger/internal/domain"
	"tillledger/internal/logging"
)

type closer interface {
	Today() domain.Date
	IsClosed(ctx context.Context, date domain.Date) (bool, error)
	Preview(ctx context.Context, date domain.Date) (domain.CashClosing, error)
	CloseAutomatically(ctx context.Context, date domain.Date) (domain.CashClosing, bool, error)
}

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("startup failed")
	}
	err = run(ctx, os.Args[1:], os.Stdout, a.Service.Closings)
	_ = a.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

func run(ctx context.Context, args []string, out io.Writer, closings closer) error {
	fs := flag.NewFlagSet("backfill-closings", flag.ContinueOnError)
	fs.SetOutput(out)
	fromFlag := fs.String("from", "", "first day to close, YYYY-MM-DD (required)")
	toFlag := fs.String("to", "", "last day to close, YYYY-MM-DD (default yesterday)")
	dryRun := fs.Bool("dry-run", false, "print what would be closed without writing")
	if err := fs.Parse(args); err != nil {
		return err
	}

	from, to, err := parseRange(*fromFlag, *toFlag, closings.Today())
	if err != nil {
		return err
	}

	var closed, skipped int
	for date := from; !to.Before(date); date = date.AddDays(1) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if *dryRun {
			line, err := previewLine(ctx, closings, date)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, line)
			continue
		}

		closing, ok, err := closings.CloseAutomatically(ctx, date)
		if err != nil {
			return fmt.Errorf("%s: %w", date, err)
		}
		if !ok {
			skipped++
			fmt.Fprintf(out, "%s skipped\n", date)
			continue
		}
		closed++
		fmt.Fprintf(out, "%s closed gross=%s net=%s\n", date, closing.Gross.StringFixed(2), closing.Net.StringFixed(2))
	}
	if !*dryRun {
		fmt.Fprintf(out, "done: %d closed, %d skipped\n", closed, skipped)
	}
	return nil
}

func parseRange(fromValue string, toValue string, today domain.Date) (domain.Date, domain.Date, error) {
	if fromValue == "" {
		return domain.Date{}, domain.Date{}, errors.New("-from is required")
	}
	from, err := domain.ParseDate(fromValue)
	if err != nil {
		return domain.Date{}, domain.Date{}, fmt.Errorf("-from: %w", err)
	}
	to := today.AddDays(-1)
	if toValue != "" {
		if to, err = domain.ParseDate(toValue); err != nil {
			return domain.Date{}, domain.Date{}, fmt.Errorf("-to: %w", err)
		}
	}
	if to.Before(from) {
		return domain.Date{}, domain.Date{}, fmt.Errorf("-to %s is before -from %s", to, from)
	}
	if !to.Before(today) {
		return domain.Date{}, domain.Date{}, fmt.Errorf("-to must be before today (%s); today is closed by the operator", today)
	}
	return from, to, nil
}

func previewLine(ctx context.Context, closings closer, date domain.Date) (string, error) {
	isClosed, err := closings.IsClosed(ctx, date)
	if err != nil {
		return "", fmt.Errorf("%s: %w", date, err)
	}
	if isClosed {
		return fmt.Sprintf("%s already closed", date), nil
	}
	preview, err := closings.Preview(ctx, date)
	if err != nil {
		return "", fmt.Errorf("%s: %w", date, err)
	}
	if !preview.Gross.IsPositive() {
		return fmt.Sprintf("%s no sales, stays open", date), nil
	}
	return fmt.Sprintf("%s would close gross=%s net=%s", date, preview.Gross.StringFixed(2), preview.Net.StringFixed(2)), nil
}
