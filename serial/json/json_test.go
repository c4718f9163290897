package json_test

import (
	"math/rand/v2"
	"strconv"
	"testing"

	"github.com/teenjuna/framer/internal/testing/require"
	"github.com/teenjuna/framer/serial/json"
)

func TestSerializer(t *testing.T) {
	type Item struct {
		ID string
		N1 int
		N2 float64
	}

	s := json.New[Item]()

	var data []byte
	var items []Item
	var ends []int
	for i := range 1000 {
		item := Item{
			ID: strconv.Itoa(i),
			N1: rand.IntN(1000),
			N2: float64(rand.IntN(1000)) / 8,
		}
		items = append(items, item)

		var err error
		data, err = s.Marshal(data, item)
		require.Nil(t, err)
		ends = append(ends, len(data))
	}

	start := 0
	for i, end := range ends {
		item, err := s.Unmarshal(data[start:end])
		require.Nil(t, err)
		require.Equal(t, item, items[i])
		start = end
	}
}

func TestTrailingData(t *testing.T) {
	s := json.New[int]()

	_, err := s.Unmarshal([]byte("1 2"))
	require.NotNil(t, err)

	_, err = s.Unmarshal([]byte("{"))
	require.NotNil(t, err)
}
