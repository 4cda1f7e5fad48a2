package cli

import (
	"context"
	"errors"

	"github.com/trylock/viewer-sub003/internal/cache"
	"github.com/trylock/viewer-sub003/internal/entity"
	"github.com/trylock/viewer-sub003/internal/fsys"
	"github.com/trylock/viewer-sub003/internal/funcs"
	"github.com/trylock/viewer-sub003/internal/logging"
	"github.com/trylock/viewer-sub003/internal/plan"
	"github.com/trylock/viewer-sub003/internal/query"
	"github.com/trylock/viewer-sub003/internal/views"
)

// session holds what a command needs to compile and run queries.
type session struct {
	store    *cache.Store
	views    *views.Store
	env      *plan.Environment
	compiler *query.Compiler
}

// openSession opens the attribute cache and the view store.
func openSession() (*session, error) {
	log := logging.GetLogger()

	store, err := cache.Open(resolvedCachePath, cache.WithLogger(&log))
	if err != nil {
		return nil, handleError(ErrDatabaseError, err, "Delete the cache file to rebuild it with 'vwr index'")
	}
	viewStore, err := views.Load(resolvedViewsPath)
	if err != nil {
		store.Close()
		return nil, handleError(ErrConfigInvalid, err, "")
	}

	env := &plan.Environment{
		FS:         fsys.OS{},
		Loader:     &entity.FileLoader{Custom: store, Log: &log},
		Hidden:     cfg.HiddenAttributes(),
		Extensions: cfg.ExtensionList(),
		Funcs:      funcs.Default(),
		Stats:      store,
		Logger:     &log,
	}
	return &session{
		store:    store,
		views:    viewStore,
		env:      env,
		compiler: query.NewCompiler(env, query.WithViews(viewStore)),
	}, nil
}

// compilerWith returns a compiler that resolves views through v.
func (s *session) compilerWith(v query.Views) *query.Compiler {
	return query.NewCompiler(s.env, query.WithViews(v))
}

func (s *session) Close() error {
	return s.store.Close()
}

// compile compiles text and reports every compilation error.
func (s *session) compile(text string) (plan.Query, error) {
	var errs query.ErrorList
	q, err := s.compiler.Compile(text, &errs)
	if err == nil {
		return q, nil
	}
	if len(errs.Errors) == 0 {
		return nil, fail(err)
	}
	return nil, compileError(errs.Errors)
}

type compileErrorDetail struct {
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Message string `json:"message"`
}

func compileError(errs []*query.SyntaxError) error {
	details := make([]compileErrorDetail, len(errs))
	joined := make([]error, len(errs))
	for i, e := range errs {
		details[i] = compileErrorDetail{Line: e.Line, Column: e.Column, Message: e.Message}
		joined[i] = e
	}
	return handleErrorWithDetails(ErrQueryInvalid, errors.Join(joined...), details)
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
