package counter

import "imagedetect/internal/models"

// Aggregate counts boxes per class across results, keeping first-seen class order.
func Aggregate(results ...models.DetectionResult) models.Tally {
	var t models.Tally
	index := make(map[string]int)

	for _, res := range results {
		for _, box := range res.Boxes {
			i, ok := index[box.ClassName]
			if !ok {
				i = len(t.Counts)
				index[box.ClassName] = i
				t.Counts = append(t.Counts, models.ClassCount{Class: box.ClassName})
			}
			t.Counts[i].Count++
			t.Total++
		}
	}

	return t
}
