package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/mmeshcher/storefront-admin/internal/model"
)

// LoadTierThresholds читает пороги сегментации из YAML-файла.
// Не указанные в файле пороги берутся из значений по умолчанию.
func LoadTierThresholds(path string) (model.TierThresholds, error) {
	th := model.DefaultTierThresholds()

	data, err := os.ReadFile(path)
	if err != nil {
		return th, fmt.Errorf("read tiers file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return th, errors.New("tiers file is empty")
	}

	if err := yaml.Unmarshal(data, &th); err != nil {
		return th, fmt.Errorf("parse tiers file: %w", err)
	}

	if err := validateThresholds(th); err != nil {
		return th, err
	}

	return th, nil
}

func validateThresholds(th model.TierThresholds) error {
	if th.VIPSpend <= th.PremiumSpend {
		return errors.New("vip_spend must be greater than premium_spend")
	}
	if th.PremiumSpend <= th.RegularSpend {
		return errors.New("premium_spend must be greater than regular_spend")
	}
	if th.RegularSpend < 0 || th.RegularOrders < 0 || th.RegularAgeDays < 0 {
		return errors.New("tier thresholds must not be negative")
	}
	return nil
}

// TierStore хранит текущие пороги сегментации и позволяет атомарно их заменять.
type TierStore struct {
	current atomic.Pointer[model.TierThresholds]
	path    string
}

// NewTierStore создаёт хранилище порогов. При пустом path используются значения по умолчанию.
func NewTierStore(path string) (*TierStore, error) {
	s := &TierStore{path: path}

	th := model.DefaultTierThresholds()
	if path != "" {
		loaded, err := LoadTierThresholds(path)
		if err != nil {
			return nil, err
		}
		th = loaded
	}
	s.current.Store(&th)

	return s, nil
}

// Thresholds возвращает актуальные пороги сегментации.
func (s *TierStore) Thresholds() model.TierThresholds {
	return *s.current.Load()
}

// Watch перечитывает файл порогов при его изменении до отмены контекста.
// Некорректный файл игнорируется, текущие пороги остаются прежними.
func (s *TierStore) Watch(ctx context.Context, logger *zap.Logger) error {
	if s.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Следим за каталогом: редакторы часто заменяют файл целиком.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("watch tiers dir: %w", err)
	}

	target := filepath.Clean(s.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			s.reload(logger)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("tiers watcher error", zap.Error(err))
		}
	}
}

func (s *TierStore) reload(logger *zap.Logger) {
	th, err := LoadTierThresholds(s.path)
	if err != nil {
		logger.Warn("keep previous tier thresholds", zap.Error(err), zap.String("path", s.path))
		return
	}
	s.current.Store(&th)
	logger.Info("tier thresholds reloaded",
		zap.Float64("vipSpend", th.VIPSpend),
		zap.Float64("premiumSpend", th.PremiumSpend),
	)
}
