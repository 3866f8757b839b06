package helper

import (
	"fmt"
	"sync"

	"github.com/cradoe/puddle/internal/errHandler"
)

type HelperRepository struct {
	baseUrl    string
	WG         *sync.WaitGroup
	errHandler *errHandler.ErrorRepository
}

func New(baseUrl string, wg *sync.WaitGroup, errHandler *errHandler.ErrorRepository) *HelperRepository {
	return &HelperRepository{
		baseUrl:    baseUrl,
		WG:         wg,
		errHandler: errHandler,
	}
}

func (h *HelperRepository) NewEmailData() map[string]any {
	data := map[string]any{
		"BaseURL": h.baseUrl,
	}

	return data
}

// BackgroundTask runs fn in a goroutine tracked by WG so shutdown can wait
// for it. Panics and errors are reported, never propagated.
func (h *HelperRepository) BackgroundTask(fn func() error) {
	h.WG.Add(1)

	go func() {
		defer h.WG.Done()

		defer func() {
			err := recover()
			if err != nil {
				h.errHandler.ReportServerError(nil, fmt.Errorf("%s", err))
			}
		}()

		err := fn()
		if err != nil {
			h.errHandler.ReportServerError(nil, err)
		}
	}()
}
