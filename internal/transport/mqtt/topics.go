package mqtt

import "fmt"

const TopicPrefix = "voxelbuilder"

// Topics builds the topic names for one world.
type Topics struct {
	WorldID string
}

// BuilderStatus is the retained per-builder status topic.
//
// Example: voxelbuilder/overworld/builder/B1/status
func (t Topics) BuilderStatus(builderID string) string {
	return fmt.Sprintf("%s/%s/builder/%s/status", TopicPrefix, t.WorldID, builderID)
}

// WorldStatus carries the online/offline state of the world process.
func (t Topics) WorldStatus() string {
	return fmt.Sprintf("%s/%s/status", TopicPrefix, t.WorldID)
}
