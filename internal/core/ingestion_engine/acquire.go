package ingestion_engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/davidolu-dev/shoplore/internal/core"
)

// fetchTimeout bounds one remote download.
const fetchTimeout = 2 * time.Minute

// FetchFileContent resolves a storage locator to raw bytes. HTTP(S) locators
// are fetched over the network; anything else is read as a local path. The
// returned AcquisitionError distinguishes the two so callers can decide
// whether a retry makes sense. Cleanup of local temp files stays with the
// orchestrator, not here.
func FetchFileContent(ctx context.Context, locator string) ([]byte, error) {
	if strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://") {
		return fetchRemote(ctx, locator)
	}

	data, err := os.ReadFile(locator)
	if err != nil {
		return nil, &core.AcquisitionError{Locator: locator, Remote: false, Err: err}
	}
	return data, nil
}

func fetchRemote(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &core.AcquisitionError{Locator: url, Remote: true, Err: err}
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, &core.AcquisitionError{Locator: url, Remote: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &core.AcquisitionError{
			Locator: url,
			Remote:  true,
			Err:     fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &core.AcquisitionError{Locator: url, Remote: true, Err: err}
	}
	return data, nil
}
