// Command voxelbuilder runs and inspects auto-builder worlds.
package main

func main() {
	Execute()
}
