package core

import (
	"context"
	"math"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat/distuv"

	ex "mc.backtest/extensions"
	"mc.backtest/models"
)

const BatchSize = 10_000

// SharpeSimulator draws one year paths of daily returns and records the annualized sharpe of each.
// Trials are split into batches; batch i always draws from a PCG seeded (Seed, i+1), so a given
// seed and batch size produce the same distribution for any number of workers.
type SharpeSimulator struct {
	Seed      uint64 // 0 picks a random seed, the one used is returned by Run
	Workers   int    // <= 1 runs every batch on the calling goroutine
	BatchSize int    // <= 0 uses BatchSize
}

type job struct {
	index int
	start int
	end   int
}

// GetNumberOfJobsAndWorkers divides iterations into batches of batchSize (the last may be shorter)
// and caps the worker count at the number of batches.
func GetNumberOfJobsAndWorkers(iterations int, batchSize int, workers int) ([]job, int) {
	if iterations <= 0 || batchSize <= 0 {
		return []job{}, 0
	}

	nJobs := int(math.Ceil(float64(iterations) / float64(batchSize)))
	nWorkers := ex.Min(nJobs, workers)

	jobs := make([]job, nJobs)
	for i := range nJobs {
		jobs[i] = job{
			index: i,
			start: i * batchSize,
			end:   ex.Min((i+1)*batchSize, iterations),
		}
	}

	return jobs, nWorkers
}

// SimulateSharpe runs nSims trials from a normal model of daily returns using src.
// A zero daily standard deviation gives an empty result straight away, and trials whose
// simulated volatility is not positive are left out rather than reported as zero.
func SimulateSharpe(mean, stdDev, annualRiskFree float64, nSims int, src rand.Source) []float64 {
	sharpes := make([]float64, 0, max(nSims, 0))
	if stdDev == 0 || nSims <= 0 {
		return sharpes
	}

	dist := distuv.Normal{Mu: mean, Sigma: stdDev, Src: src}
	path := make([]float64, models.TradingDaysPerYear)
	for range nSims {
		if sharpe, ok := simulateTrial(dist, path, annualRiskFree); ok {
			sharpes = append(sharpes, sharpe)
		}
	}

	return sharpes
}

// Run is SimulateSharpe spread over batches, returning the sharpes in trial order and the seed used
func (s SharpeSimulator) Run(ctx context.Context, mean, stdDev, annualRiskFree float64, nSims int) ([]float64, uint64, error) {
	seed := s.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	if stdDev == 0 || nSims <= 0 {
		return []float64{}, seed, nil
	}

	batchSize := s.BatchSize
	if batchSize <= 0 {
		batchSize = BatchSize
	}

	jobs, nWorkers := GetNumberOfJobsAndWorkers(nSims, batchSize, max(s.Workers, 1))

	// each trial owns its slot, so workers never write to the same index
	sharpes := make([]float64, nSims)
	kept := make([]bool, nSims)

	runJob := func(j job) {
		dist := distuv.Normal{Mu: mean, Sigma: stdDev, Src: rand.NewPCG(seed, uint64(j.index+1))}
		path := make([]float64, models.TradingDaysPerYear)
		for sim := j.start; sim < j.end; sim++ {
			sharpes[sim], kept[sim] = simulateTrial(dist, path, annualRiskFree)
		}
	}

	if nWorkers <= 1 {
		for _, j := range jobs {
			if err := ctx.Err(); err != nil {
				return nil, seed, err
			}
			runJob(j)
		}
		return compactSharpes(sharpes, kept), seed, nil
	}

	jobsChannel := make(chan job, len(jobs))
	for _, j := range jobs {
		jobsChannel <- j
	}
	close(jobsChannel)

	g, gctx := errgroup.WithContext(ctx)
	for range nWorkers {
		g.Go(func() error {
			for j := range jobsChannel {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				runJob(j)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, seed, err
	}

	return compactSharpes(sharpes, kept), seed, nil
}

// simulateTrial draws one path into path and returns its annualized sharpe, false if the path is degenerate
func simulateTrial(dist distuv.Normal, path []float64, annualRiskFree float64) (float64, bool) {
	for i := range path {
		path[i] = dist.Rand()
	}

	stats := CalculateStats(path)
	if stats == nil {
		return 0, false
	}

	annualizedReturn := stats.Mean * models.TradingDaysPerYear
	annualizedVolatility := stats.StdDev * math.Sqrt(models.TradingDaysPerYear)
	if !(annualizedVolatility > 0) {
		return 0, false
	}

	return (annualizedReturn - annualRiskFree) / annualizedVolatility, true
}

func compactSharpes(sharpes []float64, kept []bool) []float64 {
	res := make([]float64, 0, len(sharpes))
	for i, s := range sharpes {
		if kept[i] {
			res = append(res, s)
		}
	}
	return res
}
