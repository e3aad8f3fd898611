// migrate applies or reverts the embedded SQL migrations (go run ./cmd/migrate [up|down|status]).
package main

import (
	"context"
	"fmt"

	"github.com/alecthomas/kong"

	"github.com/meisaku0/backend/internal/config"
	"github.com/meisaku0/backend/internal/db/migrate"
)

var (
	version = "dev"
	cli     struct {
		Version kong.VersionFlag
		Up      UpCmd `cmd:"" default:"1" help:"Apply all pending migrations."`
		Down    DownCmd      `cmd:"" help:"Revert every migration."`
		Status  StatusCmd    `cmd:"" help:"Print the current schema version."`
	}
)

type UpCmd struct{}

func (UpCmd) Run() error {
	return run(migrate.Up)
}

type DownCmd struct {
	Yes bool `help:"Confirm dropping every table." short:"y"`
}

func (d DownCmd) Run() error {
	if !d.Yes {
		return fmt.Errorf("refusing to revert all migrations without --yes")
	}
	return run(migrate.Down)
}

type StatusCmd struct{}

func (StatusCmd) Run() error {
	cfg, err := config.LoadDatabase()
	if err != nil {
		return err
	}
	v, dirty, err := migrate.Status(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	fmt.Printf("version %d dirty=%t\n", v, dirty)
	return nil
}

func run(direction migrate.Direction) error {
	cfg, err := config.LoadDatabase()
	if err != nil {
		return err
	}
	if err := migrate.Run(cfg.DatabaseURL, direction); err != nil {
		return fmt.Errorf("migrate %s: %w", direction, err)
	}
	fmt.Printf("migrate %s: done\n", direction)
	return nil
}

func main() {
	cmd := kong.Parse(&cli,
		kong.Name("migrate"),
		kong.Vars{"version": version},
		kong.BindTo(context.Background(), (*context.Context)(nil)))
	cmd.FatalIfErrorf(cmd.Run())
}
