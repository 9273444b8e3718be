package counter

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"

	"imagedetect/internal/models"
)

func boxes(names ...string) []models.DetectedBox {
	out := make([]models.DetectedBox, len(names))
	for i, n := range names {
		out[i] = models.DetectedBox{ClassName: n, Confidence: 0.9}
	}
	return out
}

func TestAggregateEmpty(t *testing.T) {
	tally := Aggregate(models.DetectionResult{})

	assert.Empty(t, tally.Counts)
	assert.Zero(t, tally.Total)

	assert.Zero(t, Aggregate().Total)
}

func TestAggregateFirstSeenOrder(t *testing.T) {
	res := models.DetectionResult{Boxes: boxes("dog", "cat", "dog", "person", "cat", "dog")}

	tally := Aggregate(res)

	assert.Equal(t, []models.ClassCount{
		{Class: "dog", Count: 3},
		{Class: "cat", Count: 2},
		{Class: "person", Count: 1},
	}, tally.Counts)
	assert.Equal(t, 6, tally.Total)
}

func TestAggregateAcrossResults(t *testing.T) {
	tally := Aggregate(
		models.DetectionResult{Boxes: boxes("cat")},
		models.DetectionResult{Boxes: boxes("dog", "cat")},
	)

	assert.Equal(t, 2, tally.Count("cat"))
	assert.Equal(t, 1, tally.Count("dog"))
	assert.Equal(t, 3, tally.Total)
}

func TestAggregateCountsMatchBoxes(t *testing.T) {
	classes := []string{"person", "car", "bus", "cat", "dog", "bicycle"}
	rng := rand.New(rand.NewPCG(1, 2))

	for run := 0; run < 50; run++ {
		n := rng.IntN(40)
		names := make([]string, n)
		want := make(map[string]int)
		for i := range names {
			names[i] = classes[rng.IntN(len(classes))]
			want[names[i]]++
		}

		tally := Aggregate(models.DetectionResult{Boxes: boxes(names...)})

		assert.Len(t, tally.Counts, len(want))
		assert.Equal(t, n, tally.Total)
		sum := 0
		for _, c := range tally.Counts {
			assert.Equal(t, want[c.Class], c.Count, c.Class)
			sum += c.Count
		}
		assert.Equal(t, n, sum)
	}
}
