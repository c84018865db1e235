package pointsource

import (
	"io"
	"os"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func writeTempCSV(t *testing.T, content string) string {
	file, err := os.CreateTemp("", "pointsource-*.csv")
	assert.NoError(t, err)
	_, err = file.WriteString(content)
	assert.NoError(t, err)
	assert.NoError(t, file.Close())
	return file.Name()
}

func TestNewCSVSourceRejectsMissingRequiredColumn(t *testing.T) {
	path := writeTempCSV(t, "x,y\n1,2\n")
	defer os.Remove(path)

	_, err := NewCSVSource(path)
	assert.Error(t, err)
}

func TestCSVSourceReadsMinimalColumns(t *testing.T) {
	path := writeTempCSV(t, "x,y,z\n1.5,2.5,3.5\n")
	defer os.Remove(path)

	source, err := NewCSVSource(path)
	assert.NoError(t, err)
	defer source.Close()

	assert.Equal(t, int64(1), source.NumPointsHint())

	point, err := source.Next()
	assert.NoError(t, err)
	assert.Equal(t, 1.5, point.X)
	assert.Equal(t, 2.5, point.Y)
	assert.Equal(t, 3.5, point.Z)
	assert.Equal(t, uint8(255), point.R)
	assert.Equal(t, uint8(255), point.G)
	assert.Equal(t, uint8(255), point.B)
	assert.Equal(t, uint8(0), point.Intensity)
	assert.Equal(t, uint8(0), point.Classification)

	_, err = source.Next()
	assert.Error(t, err)
}

func TestCSVSourceReadsAllColumns(t *testing.T) {
	path := writeTempCSV(t, "x,y,z,r,g,b,intensity,classification\n1,2,3,10,20,30,40,2\n")
	defer os.Remove(path)

	source, err := NewCSVSource(path)
	assert.NoError(t, err)
	defer source.Close()

	point, err := source.Next()
	assert.NoError(t, err)
	assert.Equal(t, uint8(10), point.R)
	assert.Equal(t, uint8(20), point.G)
	assert.Equal(t, uint8(30), point.B)
	assert.Equal(t, uint8(40), point.Intensity)
	assert.Equal(t, uint8(2), point.Classification)
}

func TestCSVSourceColumnOrderIsIrrelevant(t *testing.T) {
	path := writeTempCSV(t, "z,x,y\n3,1,2\n")
	defer os.Remove(path)

	source, err := NewCSVSource(path)
	assert.NoError(t, err)
	defer source.Close()

	point, err := source.Next()
	assert.NoError(t, err)
	assert.Equal(t, 1.0, point.X)
	assert.Equal(t, 2.0, point.Y)
	assert.Equal(t, 3.0, point.Z)
}

func TestCSVSourceNumPointsHintCountsAllDataRows(t *testing.T) {
	path := writeTempCSV(t, "x,y,z\n1,1,1\n2,2,2\n3,3,3\n")
	defer os.Remove(path)

	source, err := NewCSVSource(path)
	assert.NoError(t, err)
	defer source.Close()

	assert.Equal(t, int64(3), source.NumPointsHint())

	count := 0
	for {
		_, err := source.Next()
		if err == io.EOF {
			break
		}
		assert.NoError(t, err)
		count++
	}
	assert.Equal(t, 3, count)
}
