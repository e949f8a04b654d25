package services

import (
	"context"
	"sync"

	"github.com/kamal-hamza/headpack/internal/core/domain"
)

// Page is one set of assets to combine, e.g. the head of one template
type Page struct {
	Name    string
	Items   []domain.AssetItem
	Options any
}

// CombineAllRequest represents a request to warm the cache for many pages
type CombineAllRequest struct {
	Pages      []Page
	MaxWorkers int // Number of concurrent workers
}

// PageResult is the outcome for one page
type PageResult struct {
	Name     string
	Response *CombineResponse
	Success  bool
	Error    error
}

// CombineAllResponse aggregates page results in page order
type CombineAllResponse struct {
	Total     int
	Succeeded int
	Failed    int
	Results   []PageResult
}

// CombineProgress reports one finished page
type CombineProgress struct {
	Current int
	Total   int
	Name    string
	Success bool
	Error   error
}

type pageJob struct {
	index int
	page  Page
}

type pageDone struct {
	index  int
	result PageResult
}

// ExecuteAll combines every page concurrently. Pages that share a
// fingerprint may write the same file at once; each write is an atomic
// rename of identical bytes.
func (s *CombineService) ExecuteAll(ctx context.Context, req CombineAllRequest) (*CombineAllResponse, error) {
	return s.executeAll(ctx, req, nil), nil
}

// ExecuteAllWithProgress combines every page and reports progress.
// progressChan is closed when all pages are done; a nil channel reports nothing.
func (s *CombineService) ExecuteAllWithProgress(ctx context.Context, req CombineAllRequest, progressChan chan<- CombineProgress) (*CombineAllResponse, error) {
	if progressChan != nil {
		defer close(progressChan)
	}
	return s.executeAll(ctx, req, progressChan), nil
}

func (s *CombineService) executeAll(ctx context.Context, req CombineAllRequest, progressChan chan<- CombineProgress) *CombineAllResponse {
	response := &CombineAllResponse{
		Total:   len(req.Pages),
		Results: make([]PageResult, len(req.Pages)),
	}
	if len(req.Pages) == 0 {
		return response
	}

	// Default to 4 workers if not specified
	maxWorkers := req.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}

	jobs := make(chan pageJob, len(req.Pages))
	results := make(chan pageDone, len(req.Pages))

	// Start workers
	var wg sync.WaitGroup
	for i := 0; i < maxWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.worker(ctx, jobs, results)
		}()
	}

	// Send jobs
	for i, page := range req.Pages {
		jobs <- pageJob{index: i, page: page}
	}
	close(jobs)

	// Wait for all workers to finish
	go func() {
		wg.Wait()
		close(results)
	}()

	// Collect results in page order
	current := 0
	for done := range results {
		response.Results[done.index] = done.result
		if done.result.Success {
			response.Succeeded++
		} else {
			response.Failed++
		}

		current++
		if progressChan != nil {
			progressChan <- CombineProgress{
				Current: current,
				Total:   response.Total,
				Name:    done.result.Name,
				Success: done.result.Success,
				Error:   done.result.Error,
			}
		}
	}

	return response
}

// worker processes combine jobs until the channel is drained
func (s *CombineService) worker(ctx context.Context, jobs <-chan pageJob, results chan<- pageDone) {
	for job := range jobs {
		result := PageResult{Name: job.page.Name}

		// Check if context is cancelled
		if err := ctx.Err(); err != nil {
			result.Error = err
			results <- pageDone{index: job.index, result: result}
			continue
		}

		resp, err := s.Execute(ctx, CombineRequest{
			Items:   job.page.Items,
			Options: job.page.Options,
		})
		if err != nil {
			result.Error = err
		} else {
			result.Success = true
			result.Response = resp
		}

		results <- pageDone{index: job.index, result: result}
	}
}
