package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"github.com/cwbudde/mayfly"
)

// The engine's overtone gain law is gain_k = 2 / (a^(f_k/f_0) * b^k) with
// a=1.1 and b=1.6 chosen by ear. This tool searches the (a, b) pair whose
// normalized spectrum best matches a measured harmonic profile, given as
// per-harmonic levels in dB relative to the fundamental.

type bounds struct {
	lo float64
	hi float64
}

var searchBounds = []bounds{
	{1.01, 1.5}, // a: per-frequency-ratio decay base
	{1.1, 2.5},  // b: per-overtone decay base
}

func main() {
	targetFlag := flag.String("target", "", "Comma-separated harmonic levels in dB relative to the fundamental (e.g. \"0,-7,-12,-16\")")
	variant := flag.String("mayfly-variant", "desma", "Mayfly variant: ma|desma|olce|eobbma|gsasma|mpma|aoblmoa")
	pop := flag.Int("mayfly-pop", 10, "Male and female population size")
	iters := flag.Int("iterations", 200, "Mayfly iterations")
	seed := flag.Int64("seed", 1, "Random seed")
	flag.Parse()

	target, err := parseTarget(*targetFlag)
	if err != nil {
		die("invalid -target: %v", err)
	}
	if *pop < 2 {
		*pop = 2
	}

	best := []float64{1.1, 1.6}
	bestScore := profileError(best, target)
	fmt.Printf("Start a=%.4f b=%.4f score=%.5f\n", best[0], best[1], bestScore)

	cfg, err := newMayflyConfig(strings.ToLower(*variant), *pop, len(searchBounds), *iters)
	if err != nil {
		die("invalid mayfly variant: %v", err)
	}
	cfg.Rand = rand.New(rand.NewSource(*seed))
	cfg.ObjectiveFunc = func(pos []float64) float64 {
		cand := fromNormalized(pos)
		score := profileError(cand, target)
		if score < bestScore {
			best = cand
			bestScore = score
			fmt.Printf("Improved a=%.4f b=%.4f score=%.5f\n", best[0], best[1], bestScore)
		}
		return score
	}

	if _, err := runMayfly(cfg); err != nil {
		die("mayfly run failed: %v", err)
	}

	fmt.Printf("Best fit: a=%.4f b=%.4f (rms error %.3f dB over %d harmonics)\n",
		best[0], best[1], math.Sqrt(bestScore), len(target))
	for k := 1; k <= len(target); k++ {
		fmt.Printf("  harmonic %2d: model %7.2f dB  target %7.2f dB\n",
			k, modelLevelDB(best, k, len(target)), target[k-1])
	}
}

// modelGains computes the normalized gain stack for the candidate bases.
func modelGains(cand []float64, harmonics int) []float64 {
	a, b := cand[0], cand[1]
	gains := make([]float64, harmonics)
	sum := 0.0
	for k := 1; k <= harmonics; k++ {
		// Exact harmonics: f_k/f_0 equals the overtone number.
		gains[k-1] = 2.0 / (math.Pow(a, float64(k)) * math.Pow(b, float64(k)))
		sum += math.Abs(gains[k-1])
	}
	if sum > 0.9 {
		norm := 0.9 / sum
		for i := range gains {
			gains[i] *= norm
		}
	}
	return gains
}

func modelLevelDB(cand []float64, harmonic, harmonics int) float64 {
	gains := modelGains(cand, harmonics)
	return 20.0 * math.Log10(gains[harmonic-1]/gains[0])
}

// profileError is the mean squared dB error between the candidate's
// normalized spectrum and the target profile.
func profileError(cand []float64, target []float64) float64 {
	gains := modelGains(cand, len(target))
	sum := 0.0
	for k := range target {
		level := 20.0 * math.Log10(gains[k]/gains[0])
		d := level - target[k]
		sum += d * d
	}
	return sum / float64(len(target))
}

func fromNormalized(pos []float64) []float64 {
	cand := make([]float64, len(searchBounds))
	for i, b := range searchBounds {
		x := pos[i]
		if x < 0 {
			x = 0
		}
		if x > 1 {
			x = 1
		}
		cand[i] = b.lo + x*(b.hi-b.lo)
	}
	return cand
}

func newMayflyConfig(variant string, pop int, dims int, iters int) (*mayfly.Config, error) {
	var cfg *mayfly.Config
	switch variant {
	case "ma":
		cfg = mayfly.NewDefaultConfig()
	case "desma":
		cfg = mayfly.NewDESMAConfig()
	case "olce":
		cfg = mayfly.NewOLCEConfig()
	case "eobbma":
		cfg = mayfly.NewEOBBMAConfig()
	case "gsasma":
		cfg = mayfly.NewGSASMAConfig()
	case "mpma":
		cfg = mayfly.NewMPMAConfig()
	case "aoblmoa":
		cfg = mayfly.NewAOBLMOAConfig()
	default:
		return nil, fmt.Errorf("unsupported variant %q", variant)
	}
	cfg.ProblemSize = dims
	cfg.LowerBound = 0.0
	cfg.UpperBound = 1.0
	cfg.MaxIterations = iters
	cfg.NPop = pop
	cfg.NPopF = pop
	cfg.NC = 2 * pop
	cfg.NM = maxInt(1, int(math.Round(0.05*float64(pop))))
	return cfg, nil
}

func runMayfly(cfg *mayfly.Config) (_ *mayfly.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mayfly panic: %v", r)
		}
	}()
	return mayfly.Optimize(cfg)
}

func parseTarget(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("no target profile given")
	}
	parts := strings.Split(s, ",")
	target := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("bad level %q", p)
		}
		target = append(target, v)
	}
	if len(target) < 2 {
		return nil, fmt.Errorf("need at least two harmonics")
	}
	if len(target) > 32 {
		return nil, fmt.Errorf("at most 32 harmonics")
	}
	return target, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func die(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
