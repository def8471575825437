package container

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Brownie44l1/crack-api/internal/analyzer"
	"github.com/Brownie44l1/crack-api/internal/config"
	"github.com/Brownie44l1/crack-api/internal/model"
	"github.com/Brownie44l1/crack-api/internal/preprocess"
)

type Container struct {
	Registry *model.Registry
	Analyzer *analyzer.Analyzer
}

// New assembles the pipeline. The model itself is loaded on first use.
func New(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	return NewWithLoader(cfg, model.LoadONNX(cfg.ONNXLibrary), logger)
}

func NewWithLoader(cfg *config.Config, load model.Loader, logger *slog.Logger) (*Container, error) {
	prep, err := newPreparer(cfg.ResizeFilter)
	if err != nil {
		return nil, err
	}

	registry := model.NewRegistry(cfg.ModelPath, load, logger)

	return &Container{
		Registry: registry,
		Analyzer: analyzer.New(registry, prep, logger),
	}, nil
}

func newPreparer(filter string) (preprocess.Preparer, error) {
	if strings.EqualFold(filter, "opencv") {
		if !preprocess.GoCVEnabled {
			return nil, errors.New("RESIZE_FILTER: opencv requires a build with the gocv tag")
		}
		return preprocess.NewGoCVPreparer(), nil
	}

	interp, err := preprocess.ParseFilter(filter)
	if err != nil {
		return nil, fmt.Errorf("RESIZE_FILTER: %w", err)
	}
	r := preprocess.NewResizer()
	r.Filter = interp
	return r, nil
}

func (c *Container) Close() {
	c.Registry.Close()
}
