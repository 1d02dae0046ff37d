// Package geo holds the static reference table of locations the
// map-snapshot view fans out over. The list is fixed at build time and
// never persisted.
package geo

// Point is a named coordinate on the map.
type Point struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Penang enumerates the island and mainland locations covered by the map.
var Penang = []Point{
	// North Penang Island (coastal)
	{Name: "Batu Ferringhi", Lat: 5.4669, Lon: 100.2425},
	{Name: "Teluk Bahang", Lat: 5.4675, Lon: 100.1994},
	{Name: "Tanjung Bungah", Lat: 5.4542, Lon: 100.29},
	{Name: "Tanjung Tokong", Lat: 5.455, Lon: 100.3136},

	// Georgetown and central areas
	{Name: "George Town", Lat: 5.4145, Lon: 100.3292},
	{Name: "Air Itam", Lat: 5.4016, Lon: 100.2764},
	{Name: "Gelugor", Lat: 5.3741, Lon: 100.3061},
	{Name: "Jelutong", Lat: 5.3956, Lon: 100.3181},

	// South Penang Island
	{Name: "Bayan Lepas", Lat: 5.2975, Lon: 100.2658},
	{Name: "Batu Maung", Lat: 5.2833, Lon: 100.2833},
	{Name: "Gertak Sanggul", Lat: 5.2833, Lon: 100.2333},

	// West Penang Island
	{Name: "Balik Pulau", Lat: 5.35, Lon: 100.2333},
	{Name: "Pulau Betong", Lat: 5.3667, Lon: 100.2},

	// Mainland (Butterworth area)
	{Name: "Butterworth", Lat: 5.3992, Lon: 100.3669},
	{Name: "Seberang Jaya", Lat: 5.3983, Lon: 100.4033},
	{Name: "Bukit Mertajam", Lat: 5.3636, Lon: 100.4622},
	{Name: "Batu Kawan", Lat: 5.2769, Lon: 100.4411},

	// Southern mainland
	{Name: "Nibong Tebal", Lat: 5.1667, Lon: 100.4833},
	{Name: "Simpang Ampat", Lat: 5.2833, Lon: 100.4667},

	// Northern mainland
	{Name: "Kepala Batas", Lat: 5.5167, Lon: 100.4333},
	{Name: "Tasek Gelugor", Lat: 5.4844, Lon: 100.4983},
}
