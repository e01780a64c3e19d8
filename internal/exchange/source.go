package exchange

import (
	"context"
	"fmt"

	"github.com/skalibog/oema/internal/storage"
	"github.com/skalibog/oema/pkg/models"
)

// ChainSource поставляет снимки опционной цепочки. Сбор цепочек —
// обязанность внешнего коллектора, анализ лишь читает их.
type ChainSource interface {
	Latest(ctx context.Context, symbol string) (*models.ChainSnapshot, error)
}

// StorageChainSource читает последние снимки цепочек из хранилища,
// куда их пишет коллектор данных
type StorageChainSource struct {
	storage storage.Storage
}

// NewStorageChainSource создает источник снимков поверх хранилища
func NewStorageChainSource(store storage.Storage) *StorageChainSource {
	return &StorageChainSource{
		storage: store,
	}
}

// Latest возвращает последний сохраненный снимок цепочки для символа
func (s *StorageChainSource) Latest(ctx context.Context, symbol string) (*models.ChainSnapshot, error) {
	snapshot, err := s.storage.GetLatestChainSnapshot(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения снимка цепочки: %w", err)
	}
	return snapshot, nil
}
