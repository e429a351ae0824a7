package densify

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/hansbonini/blazetools/pkg/blaze"
	"github.com/hansbonini/blazetools/pkg/common"
)

// Defaults used by the patch and densify commands
const (
	DefaultMultiplier     = 2.0
	DefaultMinSize        = 2
	DefaultLargeThreshold = 8
	DefaultMaxTries       = 100
	highUsage             = 80.0
	yCopyDistance         = 1.0
	idwNeighbours         = 3
)

// Options tunes one densification run
type Options struct {
	Multiplier     float64
	MinSize        int // groups smaller than this are left alone
	LargeThreshold int // groups at least this large are skipped unless IncludeLarge
	IncludeLarge   bool
	MaxGroupSize   int // cap on the enlarged group, 0 for none
	Seed           int64
	MaxTries       int // sampling attempts per point before falling back to the centroid
}

// DefaultOptions returns the options used when no flags are given
func DefaultOptions() Options {
	return Options{
		Multiplier:     DefaultMultiplier,
		MinSize:        DefaultMinSize,
		LargeThreshold: DefaultLargeThreshold,
		MaxTries:       DefaultMaxTries,
	}
}

// Target returns the record count a group of n grows to, capped by
// MaxGroupSize. Groups already at the cap are skipped before this is asked.
func (o Options) Target(n int) int {
	t := int(math.Ceil(o.Multiplier*float64(n) - 1e-9))
	if o.MaxGroupSize > 0 && t > o.MaxGroupSize {
		t = o.MaxGroupSize
	}
	return t
}

// skip reports why a group of n records is left unchanged
func (o Options) skip(n int) string {
	switch {
	case n < max(o.MinSize, 2):
		return "too small"
	case !o.IncludeLarge && o.LargeThreshold > 0 && n >= o.LargeThreshold:
		return "large"
	case o.MaxGroupSize > 0 && n >= o.MaxGroupSize:
		return "at max group size"
	}
	return ""
}

// Result is the outcome of densifying one region
type Result struct {
	Region   string        `yaml:"region"`
	Groups   []blaze.Group `yaml:"-"`
	Modified int           `yaml:"modified_groups"`
	Before   int           `yaml:"records_before"`
	After    int           `yaml:"records_after"`
	Bytes    int           `yaml:"record_bytes"`
	Budget   int           `yaml:"budget"`
}

// Usage returns the record bytes as a percentage of the budget
func (r *Result) Usage() float64 {
	if r.Budget <= 0 {
		return 0
	}
	return float64(r.Bytes) * 100 / float64(r.Budget)
}

// Densify grows each eligible zone-spawn group by opts.Multiplier. The
// input groups are left untouched. When the enlarged record count does not
// fit budget bytes a *common.RegionOverflowError is returned and no result.
func Densify(region string, groups []blaze.Group, budget int, opts Options) (*Result, error) {
	if opts.Multiplier < 1 {
		return nil, fmt.Errorf("%s: multiplier %.2f is below 1", region, opts.Multiplier)
	}
	if opts.MaxTries <= 0 {
		opts.MaxTries = DefaultMaxTries
	}
	rng := rand.New(rand.NewPCG(uint64(opts.Seed), 0))

	res := &Result{Region: region, Budget: budget, Groups: make([]blaze.Group, len(groups))}
	for i := range groups {
		g := groups[i]
		g.Records = append([]blaze.Record(nil), g.Records...)
		res.Before += len(g.Records)

		n := len(g.Records)
		if why := opts.skip(n); why != "" {
			common.LogDebug("group @ 0x%X: %d record(s) skipped (%s)", g.Offset, n, why)
		} else if target := opts.Target(n); target > n {
			hull := grow(&g, target, rng, opts.MaxTries)
			common.LogDebug(common.DebugDensifyGroup, fmt.Sprintf("0x%X", g.Offset), n, len(g.Records), hull)
			res.Modified++
		}
		res.After += len(g.Records)
		res.Groups[i] = g
	}

	res.Bytes = res.After * blaze.RecordSize
	offset := 0
	if len(groups) > 0 {
		offset = groups[0].Offset
		blaze.Relayout(res.Groups, offset)
	}
	if res.Bytes > budget {
		return nil, &common.RegionOverflowError{Region: region, Offset: offset, Need: res.Bytes, Budget: budget}
	}
	if res.Usage() > highUsage {
		common.LogWarn(common.WarnHighSpaceUsage, region, res.Usage())
	}
	return res, nil
}

// grow appends records to g until it holds target of them and returns the
// number of hull vertices used.
func grow(g *blaze.Group, target int, rng *rand.Rand, maxTries int) int {
	originals := g.Records
	points := make([]Point, len(originals))
	for i, r := range originals {
		points[i] = Point{float64(r.X), float64(r.Z)}
	}
	hull := ConvexHull(points)

	out := append(make([]blaze.Record, 0, target), originals...)
	for len(out) < target {
		p := samplePoint(hull, rng, maxTries)
		rec := originals[rng.IntN(len(originals))]
		rec.GroupStart = false
		rec.AltLast = false
		rec.X = common.ClampToInt16(p.X)
		rec.Z = common.ClampToInt16(p.Z)
		rec.Y = common.ClampToInt16(height(originals, p))
		if rec.X == 0 && rec.Y == 0 && rec.Z == 0 {
			// zone spawns may not sit on the origin
			rec.X = 1
		}
		out = append(out, rec)
	}
	out[0].GroupStart = true
	g.Records = out
	return len(hull)
}

// samplePoint draws a point inside hull. Hulls of one or two unique points
// have no interior, so the point itself or a point on the segment is used.
func samplePoint(hull []Point, rng *rand.Rand, maxTries int) Point {
	switch len(hull) {
	case 1:
		return hull[0]
	case 2:
		t := rng.Float64()
		return Point{hull[0].X + t*(hull[1].X-hull[0].X), hull[0].Z + t*(hull[1].Z-hull[0].Z)}
	}
	lo, hi := bounds(hull)
	for range maxTries {
		p := Point{lo.X + rng.Float64()*(hi.X-lo.X), lo.Z + rng.Float64()*(hi.Z-lo.Z)}
		if Inside(hull, p) {
			return p
		}
	}
	return Centroid(hull)
}

// height interpolates y at p from the nearest originals by inverse
// distance weighting. An original within one unit lends its y directly.
func height(originals []blaze.Record, p Point) float64 {
	type neighbour struct {
		d, y float64
	}
	near := make([]neighbour, len(originals))
	for i, r := range originals {
		near[i] = neighbour{math.Hypot(float64(r.X)-p.X, float64(r.Z)-p.Z), float64(r.Y)}
	}
	sort.SliceStable(near, func(i, j int) bool { return near[i].d < near[j].d })
	if near[0].d < yCopyDistance {
		return near[0].y
	}

	var sum, weights float64
	for _, n := range near[:min(idwNeighbours, len(near))] {
		w := 1 / (n.d + 1)
		sum += w * n.y
		weights += w
	}
	return sum / weights
}
