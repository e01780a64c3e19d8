package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/skalibog/oema/internal/analysis/pipeline"
	"github.com/skalibog/oema/internal/config"
	"github.com/skalibog/oema/internal/exchange"
	"github.com/skalibog/oema/internal/storage"
	"github.com/skalibog/oema/internal/ui"
	"github.com/skalibog/oema/pkg/logger"
	"github.com/skalibog/oema/pkg/models"
)

func main() {
	// Обработка флагов командной строки
	configPath := flag.String("config", "config.yaml", "путь к файлу конфигурации")
	flag.Parse()

	logger.Init("")
	defer logger.GetLogger().Sync()

	// Проверяем наличие файла конфигурации
	logger.Info("Проверка наличия файла конфигурации", zap.String("path", *configPath))
	if _, err := os.Stat(*configPath); os.IsNotExist(err) {
		logger.Fatal("Файл конфигурации не найден", zap.String("path", *configPath))
	}

	// Загружаем конфигурацию; отсутствие обязательного параметра —
	// фатальная ошибка, а не тихий откат к значениям по умолчанию
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Ошибка загрузки конфигурации", zap.Error(err))
	}
	logger.SetLevel(cfg.LogLevel)

	// Создаем контекст с возможностью отмены через горутину
	ctx, cancel := context.WithCancel(context.Background())

	// Настраиваем обработку сигналов завершения
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nЗавершение работы...")
		cancel()
		time.Sleep(2 * time.Second) // Даем горутинам время на завершение
		os.Exit(0)
	}()

	// Инициализируем хранилище
	store, err := storage.NewInfluxDBStorage(cfg.Storage)
	if err != nil {
		logger.Fatal("Ошибка инициализации хранилища", zap.Error(err))
	}
	defer store.Close()

	// Инициализируем клиент биржи
	client, err := exchange.NewBinanceClient(cfg.Binance)
	if err != nil {
		logger.Fatal("Ошибка инициализации клиента биржи", zap.Error(err))
	}

	// Источник снимков цепочек: их пишет в хранилище внешний коллектор
	source := exchange.NewStorageChainSource(store)

	// Создаем пайплайн анализа
	pipe := pipeline.NewPipeline(cfg.Analysis, cfg.Trading.Timeframes, store)

	// Инициализируем UI
	userInterface, err := ui.NewTermUI(cfg.UI)
	if err != nil {
		logger.Fatal("Ошибка инициализации пользовательского интерфейса", zap.Error(err))
	}

	// Запускаем аналитический процесс в горутине
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.Analysis.IntervalSeconds) * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				snapshots := collectSnapshots(ctx, cfg, source, client)
				if len(snapshots) == 0 {
					continue
				}

				results := pipe.EvaluateSymbols(ctx, snapshots)
				if len(results) > 0 {
					userInterface.UpdateResults(results)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// Запускаем UI в основном потоке (блокирующий вызов)
	userInterface.Start()
}

// collectSnapshots читает последние снимки цепочек и обогащает их
// рыночным контекстом; недоступный символ пропускается
func collectSnapshots(
	ctx context.Context,
	cfg *config.Config,
	source exchange.ChainSource,
	client *exchange.BinanceClient,
) []*models.ChainSnapshot {
	var snapshots []*models.ChainSnapshot

	for _, symbol := range cfg.Trading.Symbols {
		snapshot, err := source.Latest(ctx, symbol)
		if err != nil {
			logger.Warn("Предупреждение: снимок цепочки недоступен",
				zap.String("symbol", symbol), zap.Error(err))
			continue
		}

		enriched, err := client.EnrichSnapshot(ctx, snapshot, cfg.Analysis.VolWindow)
		if err != nil {
			logger.Warn("Предупреждение: обогащение снимка недоступно, используется как есть",
				zap.String("symbol", symbol), zap.Error(err))
			enriched = snapshot
		}

		snapshots = append(snapshots, enriched)
	}

	return snapshots
}
