package cache

const keyPrefix = "sensors:"

// MachinesKey holds the JSON list of distinct machine IDs.
func MachinesKey() string { return keyPrefix + "machines" }

// BoundsKey holds the JSON temperature bounds across all readings.
func BoundsKey() string { return keyPrefix + "temperature_bounds" }
