package factory

import (
	"github.com/mikey/phishgard/internal/utils"
	"go.uber.org/zap"
)

// TextProcessorFactory creates the text processor shared by the LLM clients
type TextProcessorFactory struct {
	logger *zap.Logger
}

// NewTextProcessorFactory creates a new TextProcessorFactory
func NewTextProcessorFactory(logger *zap.Logger) *TextProcessorFactory {
	return &TextProcessorFactory{logger: logger}
}

// CreateTextProcessor creates a TextProcessor that sanitises, NFC-normalises
// and truncates message bodies before prompting
func (f *TextProcessorFactory) CreateTextProcessor() *utils.TextProcessor {
	return utils.NewTextProcessor(f.logger.Named("text"))
}
