package tracklint

import (
	"github.com/jward/tracklint/internal/diag"
	"github.com/jward/tracklint/internal/store"
)

// Public type aliases for internal types used in the Engine and
// QueryBuilder APIs.

type Store = store.Store
type File = store.File
type KindCount = store.KindCount
type FileCount = store.FileCount
type Diagnostic = diag.Diagnostic
type Kind = diag.Kind
