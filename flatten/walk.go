package flatten

import (
	"time"

	"nodetap/kubelet"
)

type walker struct {
	tmpl      TagTemplate
	scrapedAt time.Time
	out       []MetricEvent
}

// Flatten converts one stats summary into a flat list of metric events.
// Traversal is depth-first in document order: node, its system containers,
// then each pod with its volumes and containers. It holds no state across
// calls and performs no I/O.
func Flatten(s *kubelet.Summary, scrapedAt time.Time, tmpl TagTemplate) []MetricEvent {
	w := &walker{tmpl: tmpl, scrapedAt: scrapedAt}
	w.node(&s.Node)
	for i := range s.Pods {
		w.pod(&s.Pods[i], s.Node.NodeName)
	}
	return w.out
}

func (w *walker) node(n *kubelet.NodeStats) {
	labels := Labels{"node": n.NodeName}

	w.uptime("node", n.StartTime, labels)
	w.cpu("node", n.CPU, labels)
	w.memory("node", n.Memory, labels)
	w.network("node", n.Network, labels)
	w.fs("node.fs", n.Fs, labels)
	if n.Runtime != nil {
		w.fs("node.imagefs", n.Runtime.ImageFs, labels)
	}
	w.rlimit(n.Rlimit, labels)

	for i := range n.SystemContainers {
		sc := &n.SystemContainers[i]
		sclabels := labels.With("name", sc.Name)
		w.uptime("sys-container", sc.StartTime, sclabels)
		w.cpu("sys-container", sc.CPU, sclabels)
		w.memory("sys-container", sc.Memory, sclabels)
	}
}

func (w *walker) pod(p *kubelet.PodStats, nodeName string) {
	labels := Labels{"node": nodeName}
	// Only reference keys present in the document become labels; a pod
	// without a uid carries no pod-uid label.
	if p.PodRef.Name != "" {
		labels["pod-name"] = p.PodRef.Name
	}
	if p.PodRef.Namespace != "" {
		labels["pod-namespace"] = p.PodRef.Namespace
	}
	if p.PodRef.UID != "" {
		labels["pod-uid"] = p.PodRef.UID
	}

	w.uptime("pod", p.StartTime, labels)
	w.cpu("pod", p.CPU, labels)
	w.memory("pod", p.Memory, labels)
	w.network("pod", p.Network, labels)
	w.fs("pod.ephemeral-storage", p.EphemeralStorage, labels)

	for i := range p.Volumes {
		v := &p.Volumes[i]
		w.fs("pod.volume", &v.FsStats, labels.With("name", v.Name))
	}

	for i := range p.Containers {
		c := &p.Containers[i]
		clabels := labels.With("container-name", c.Name)
		w.uptime("container", c.StartTime, clabels)
		w.cpu("container", c.CPU, clabels)
		w.memory("container", c.Memory, clabels)
		w.fs("container.rootfs", c.Rootfs, clabels)
		w.fs("container.logs", c.Logs, clabels)
	}
}
