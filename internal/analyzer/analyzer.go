// Package analyzer runs the full crack detection pipeline for one image:
// model acquisition, preprocessing, inference and the final decision.
package analyzer

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Brownie44l1/crack-api/internal/model"
	"github.com/Brownie44l1/crack-api/internal/preprocess"
	"github.com/Brownie44l1/crack-api/internal/verdict"
)

// ModelNotInitialized is the error text reported when no model is loaded.
const ModelNotInitialized = "AI Model not initialized. Please ensure the model is trained and saved."

// ModelSource hands out the process-wide classifier.
type ModelSource interface {
	Acquire() (model.Classifier, error)
}

// Analyzer is the single entry point used by the HTTP server, the CLI and
// the bot. It is safe for concurrent use.
type Analyzer struct {
	models ModelSource
	prep   preprocess.Preparer
	logger *slog.Logger
}

func New(models ModelSource, prep preprocess.Preparer, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{models: models, prep: prep, logger: logger}
}

// Analyze classifies the image at path. Every failure is reported through
// the returned verdict's Error field.
func (a *Analyzer) Analyze(path string) (v verdict.Verdict) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("analysis panicked", "path", path, "panic", r)
			v = verdict.Failure(fmt.Sprint(r))
		}
	}()

	classifier, err := a.models.Acquire()
	if err != nil {
		a.logger.Warn("model not available", "path", path, "err", err)
		return verdict.Failure(ModelNotInitialized)
	}

	tensor, err := a.prep.Prepare(path)
	if err != nil {
		var decodeErr *preprocess.DecodeError
		if errors.As(err, &decodeErr) {
			a.logger.Info("image rejected", "path", path, "err", err)
		} else {
			a.logger.Error("preprocessing failed", "path", path, "err", err)
		}
		return verdict.Failure(err.Error())
	}

	conf, err := model.Run(classifier, tensor)
	if err != nil {
		a.logger.Error("inference failed", "path", path, "err", err)
		return verdict.Failure(err.Error())
	}

	v = verdict.Classify(conf)
	a.logger.Debug("image analyzed",
		"path", path,
		"has_crack", v.HasCrack,
		"severity", v.Severity,
		"confidence", float64(conf),
		"elapsed", time.Since(start),
	)
	return v
}
