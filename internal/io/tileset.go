package io

// Asset is the mandatory "asset" property of a 3D Tiles tileset.
type Asset struct {
	Version string `json:"version"`
}

// BoundingVolume holds the tile's extent as an axis-aligned box in the
// tile's local reference frame: [centerX, centerY, centerZ, halfXx,
// halfXy, halfXz, halfYx, halfYy, halfYz, halfZx, halfZy, halfZz]. Only
// the diagonal half-axis terms are populated since the octree's boxes
// are always axis-aligned.
type BoundingVolume struct {
	Box [12]float64 `json:"box"`
}

// Content points a tile at its payload, a content.pnts file or a nested
// tileset.json.
type Content struct {
	Url string `json:"url"`
}

// Child is one entry of a tile's "children" array.
type Child struct {
	BoundingVolume BoundingVolume `json:"boundingVolume"`
	GeometricError float64        `json:"geometricError"`
	Refine         string         `json:"refine,omitempty"`
	Content        Content        `json:"content"`
	Children       []Child        `json:"children,omitempty"`
}

// Root is the tileset's root tile.
type Root struct {
	BoundingVolume BoundingVolume `json:"boundingVolume"`
	GeometricError float64        `json:"geometricError"`
	Refine         string         `json:"refine,omitempty"`
	Content        Content        `json:"content"`
	// Transform is the tile's 4x4 column-major placement matrix. Only
	// the true root tileset carries the transformer's enu_to_ecef
	// matrix, carrying every point relative to the dataset's local ENU
	// origin into earth-centered, earth-fixed coordinates; nested
	// tileset.json files carry an identity matrix, since 3D Tiles
	// composes a tile's transform with every ancestor's on load.
	Transform [16]float64 `json:"transform"`
	Children  []Child     `json:"children,omitempty"`
}

// Tileset is the top-level tileset.json document.
type Tileset struct {
	Asset          Asset   `json:"asset"`
	GeometricError float64 `json:"geometricError"`
	Root           Root    `json:"root"`
}
