package main

import (
	"fmt"
	"io"

	"voxelbuilder.ai/internal/persistence/indexdb"
	"voxelbuilder.ai/internal/persistence/mirror"
	"voxelbuilder.ai/internal/sim/world"
	"voxelbuilder.ai/internal/transport/mqtt"
	"voxelbuilder.ai/internal/transport/observer"
)

func writeMetrics(out io.Writer, w *world.World, obs *observer.Server, idx *indexdb.SQLiteIndex, pub *mqtt.StatusPublisher, mir *mirror.Mirror) {
	fmt.Fprintf(out, "# HELP voxelbuilder_tick Current world tick.\n")
	fmt.Fprintf(out, "# TYPE voxelbuilder_tick gauge\n")
	fmt.Fprintf(out, "voxelbuilder_tick %d\n", w.CurrentTick())

	fmt.Fprintf(out, "# HELP voxelbuilder_builders Registered builders.\n")
	fmt.Fprintf(out, "# TYPE voxelbuilder_builders gauge\n")
	fmt.Fprintf(out, "voxelbuilder_builders %d\n", len(w.Builders()))

	fmt.Fprintf(out, "# HELP voxelbuilder_observer_sessions Connected observer sessions.\n")
	fmt.Fprintf(out, "# TYPE voxelbuilder_observer_sessions gauge\n")
	fmt.Fprintf(out, "voxelbuilder_observer_sessions %d\n", obs.Sessions())

	fmt.Fprintf(out, "# HELP voxelbuilder_observer_dropped_total Tick messages dropped for slow observers.\n")
	fmt.Fprintf(out, "# TYPE voxelbuilder_observer_dropped_total counter\n")
	fmt.Fprintf(out, "voxelbuilder_observer_dropped_total %d\n", obs.Dropped())

	if idx != nil {
		fmt.Fprintf(out, "# HELP voxelbuilder_index_dropped_total Index writes dropped on a full queue.\n")
		fmt.Fprintf(out, "# TYPE voxelbuilder_index_dropped_total counter\n")
		fmt.Fprintf(out, "voxelbuilder_index_dropped_total %d\n", idx.Dropped())
		fmt.Fprintf(out, "voxelbuilder_index_failed_total %d\n", idx.Failed())
	}
	if pub != nil {
		fmt.Fprintf(out, "# HELP voxelbuilder_mqtt_failed_total Status publishes the broker rejected.\n")
		fmt.Fprintf(out, "# TYPE voxelbuilder_mqtt_failed_total counter\n")
		fmt.Fprintf(out, "voxelbuilder_mqtt_failed_total %d\n", pub.Failed())
		fmt.Fprintf(out, "voxelbuilder_mqtt_dropped_total %d\n", pub.Dropped())
	}
	if mir != nil {
		st := mir.Stats()
		fmt.Fprintf(out, "# HELP voxelbuilder_mirror_uploads_total Snapshot uploads by outcome.\n")
		fmt.Fprintf(out, "# TYPE voxelbuilder_mirror_uploads_total counter\n")
		fmt.Fprintf(out, "voxelbuilder_mirror_uploads_total{outcome=\"ok\"} %d\n", st.Uploaded)
		fmt.Fprintf(out, "voxelbuilder_mirror_uploads_total{outcome=\"failed\"} %d\n", st.Failed)
		fmt.Fprintf(out, "voxelbuilder_mirror_uploads_total{outcome=\"dropped\"} %d\n", st.Dropped)
		fmt.Fprintf(out, "voxelbuilder_mirror_queue %d\n", st.Queued)
	}
}
