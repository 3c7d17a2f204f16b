package flatten

import (
	"time"

	"nodetap/kubelet"
)

// Extractors below share two rules: a nil sub-object yields nothing, and a
// field emits an event iff it is present in the document. A missing counter
// is never substituted with zero.

func (w *walker) emit(tag string, ts time.Time, value interface{}, labels Labels) {
	fields := make(map[string]interface{}, len(labels)+1)
	for k, v := range labels {
		fields[k] = v
	}
	fields["value"] = value
	w.out = append(w.out, MetricEvent{
		Tag:       w.tmpl.Generate(tag),
		Timestamp: ts,
		Fields:    fields,
	})
}

func (w *walker) field(tagBase, name string, v *uint64, ts time.Time, labels Labels) {
	if v == nil {
		return
	}
	w.emit(tagBase+snakeCase(name), ts, *v, labels)
}

// at picks the event timestamp: each stats family carries its own collection
// time, with the scrape instant as fallback when the document omits it.
func (w *walker) at(t time.Time) time.Time {
	if t.IsZero() {
		return w.scrapedAt
	}
	return t
}

func (w *walker) uptime(prefix string, start time.Time, labels Labels) {
	if start.IsZero() {
		return
	}
	w.emit(prefix+".uptime", w.scrapedAt, w.scrapedAt.Sub(start).Seconds(), labels)
}

func (w *walker) cpu(prefix string, cpu *kubelet.CPUStats, labels Labels) {
	if cpu == nil || cpu.UsageNanoCores == nil {
		return
	}
	ts := w.at(cpu.Time)
	// Both tags read usageNanoCores today.
	// TODO: usage was probably meant to read usageCoreNanoSeconds; confirm
	// with the ingest side before changing what it receives.
	w.emit(prefix+".cpu.usage_rate", ts, *cpu.UsageNanoCores/1_000_000, labels)
	w.emit(prefix+".cpu.usage", ts, *cpu.UsageNanoCores, labels)
}

func (w *walker) memory(prefix string, m *kubelet.MemoryStats, labels Labels) {
	if m == nil {
		return
	}
	ts := w.at(m.Time)
	base := prefix + ".memory."
	w.field(base, "availableBytes", m.AvailableBytes, ts, labels)
	w.field(base, "usageBytes", m.UsageBytes, ts, labels)
	w.field(base, "workingSetBytes", m.WorkingSetBytes, ts, labels)
	w.field(base, "rssBytes", m.RSSBytes, ts, labels)
	w.field(base, "pageFaults", m.PageFaults, ts, labels)
	w.field(base, "majorPageFaults", m.MajorPageFaults, ts, labels)
}

func (w *walker) network(prefix string, n *kubelet.NetworkStats, labels Labels) {
	if n == nil {
		return
	}
	ts := w.at(n.Time)
	base := prefix + ".network."
	for _, iface := range n.Interfaces {
		ilabels := labels.With("interface", iface.Name)
		w.field(base, "rxBytes", iface.RxBytes, ts, ilabels)
		w.field(base, "rxErrors", iface.RxErrors, ts, ilabels)
		w.field(base, "txBytes", iface.TxBytes, ts, ilabels)
		w.field(base, "txErrors", iface.TxErrors, ts, ilabels)
	}
}

// fs is shared by every filesystem-shaped family; the caller passes the full
// family tag (node.fs, node.imagefs, pod.ephemeral-storage, pod.volume,
// container.rootfs, container.logs).
func (w *walker) fs(tag string, fs *kubelet.FsStats, labels Labels) {
	if fs == nil {
		return
	}
	ts := w.at(fs.Time)
	base := tag + "."
	w.field(base, "availableBytes", fs.AvailableBytes, ts, labels)
	w.field(base, "capacityBytes", fs.CapacityBytes, ts, labels)
	w.field(base, "usedBytes", fs.UsedBytes, ts, labels)
	w.field(base, "inodesFree", fs.InodesFree, ts, labels)
	w.field(base, "inodes", fs.Inodes, ts, labels)
	w.field(base, "inodesUsed", fs.InodesUsed, ts, labels)
}

func (w *walker) rlimit(r *kubelet.RlimitStats, labels Labels) {
	if r == nil {
		return
	}
	ts := w.at(r.Time)
	// The tag is kept exactly as the ingest side has always received it,
	// even though rlimits are unrelated to the image filesystem.
	w.field("node.runtime.imagefs.", "maxpid", r.MaxPID, ts, labels)
	w.field("node.runtime.imagefs.", "curproc", r.NumOfRunningProcesses, ts, labels)
}
