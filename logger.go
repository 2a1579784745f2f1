package paimon

import "github.com/siyangzeng/paimon-go/internal/base"

// Logger exports base.Logger, the way RowKind exports base.RowKind.
type Logger = base.Logger

// DefaultLogger exports base.DefaultLogger.
type DefaultLogger = base.DefaultLogger

// NopLogger exports base.NopLogger.
type NopLogger = base.NopLogger
