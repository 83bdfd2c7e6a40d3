package api

// Blueprint represents a Port blueprint.
type Blueprint map[string]interface{}

// Entity represents a Port entity.
type Entity map[string]interface{}
