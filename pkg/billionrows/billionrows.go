// Package billionrows computes per-key min, max and mean over large
// "key:value" text files by aggregating bounded chunks in parallel and
// merging the partial results.
package billionrows

import "context"

// Run builds a driver from config and aggregates Config.SourcePath.
func Run(ctx context.Context, config Config) (*Result, error) {
	d, err := NewDriver(config)
	if err != nil {
		return nil, err
	}
	return d.Run(ctx)
}
