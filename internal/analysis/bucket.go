package analysis

import (
	"math"
	"strconv"
)

// BucketWidth is the head resolution of the baseline curve in meters.
const BucketWidth = 0.5

// Bucket is the lower edge of a half-meter head interval.
type Bucket float64

// BucketOf maps a head to the bucket containing it: floor(head*2)/2.
func BucketOf(head float64) Bucket {
	return Bucket(math.Floor(head/BucketWidth) * BucketWidth)
}

// nearestBucket rounds a head to the closest bucket edge, ties to even, which
// is how baseline lookups have always been keyed.
func nearestBucket(head float64) Bucket {
	return Bucket(math.RoundToEven(head/BucketWidth) * BucketWidth)
}

func (b Bucket) String() string {
	return strconv.FormatFloat(float64(b), 'f', 1, 64)
}

// meanAcc folds values into a mean without depending on visit order of a map.
type meanAcc struct {
	sum   float64
	count int
}

func (a *meanAcc) add(v float64) {
	a.sum += v
	a.count++
}

func (a meanAcc) mean() float64 {
	if a.count == 0 {
		return math.NaN()
	}
	return a.sum / float64(a.count)
}
