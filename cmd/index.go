package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matchmeal/matchmeal/internal/app"
	"github.com/matchmeal/matchmeal/internal/config"
	"github.com/matchmeal/matchmeal/internal/foodsource"
	"github.com/matchmeal/matchmeal/internal/log"
)

var indexCmd = &cobra.Command{
	Use:   "index [dir]",
	Short: "음식 데이터 벌크 인덱싱",
	Long: `음식 영양 정보 CSV 디렉터리를 읽어 벡터 인덱스에 적재합니다.

서버 시작 시 백그라운드로도 적재되지만, 대용량 테이블은 이 명령으로
미리 적재해 두면 첫 요청부터 검색이 동작합니다. 이미 적재된 인덱스는
건너뜁니다.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIndex(args)
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

// runIndex loads the food table synchronously and reports counts.
func runIndex(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err = cfg.ValidateServe(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	if len(args) == 1 {
		cfg.FoodDataDir = args[0]
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := log.New(log.Config{Level: slog.LevelInfo})

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	foods, err := foodsource.ReadDir(cfg.FoodDataDir, logger)
	if err != nil {
		return fmt.Errorf("reading food data: %w", err)
	}
	if len(foods) == 0 {
		fmt.Printf("No food data found in %s\n", cfg.FoodDataDir)
		return nil
	}

	if err := a.FoodIndex.Load(ctx, foods); err != nil {
		return fmt.Errorf("loading food index: %w", err)
	}

	count, err := a.FoodIndex.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting food index: %w", err)
	}
	fmt.Printf("Food index ready: %d documents (%d rows read)\n", count, len(foods))
	return nil
}
