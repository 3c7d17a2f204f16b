package kubelet

import (
	"encoding/json"
	"testing"
)

// The kubelet omits any counter it could not collect; a decoded document has
// to keep absent fields distinguishable from zero values.
func TestSummaryDecodePartialDocument(t *testing.T) {
	doc := []byte(`{
		"node": {
			"nodeName": "n1",
			"startTime": "2020-01-01T00:00:00Z",
			"cpu": {"time": "2020-01-01T00:01:00Z", "usageNanoCores": 0},
			"fs": {"time": "2020-01-01T00:01:00Z", "availableBytes": 100},
			"rlimit": {"time": "2020-01-01T00:01:00Z", "maxpid": 32768}
		},
		"pods": [
			{
				"podRef": {"name": "p1", "namespace": "ns"},
				"volume": [{"name": "data", "time": "2020-01-01T00:01:00Z", "usedBytes": 7}]
			}
		]
	}`)

	var s Summary
	if err := json.Unmarshal(doc, &s); err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}

	if s.Node.CPU == nil || s.Node.CPU.UsageNanoCores == nil || *s.Node.CPU.UsageNanoCores != 0 {
		t.Fatal("explicit zero must decode as present zero, not absent")
	}
	if s.Node.Memory != nil {
		t.Fatal("absent memory sub-object must stay nil")
	}
	if s.Node.Fs.CapacityBytes != nil {
		t.Fatal("absent capacityBytes must stay nil")
	}
	if s.Node.Rlimit.NumOfRunningProcesses != nil {
		t.Fatal("absent curproc must stay nil")
	}

	if len(s.Pods) != 1 {
		t.Fatalf("pods = %d", len(s.Pods))
	}
	vol := s.Pods[0].Volumes[0]
	if vol.Name != "data" {
		t.Fatalf("volume name = %s", vol.Name)
	}
	if vol.UsedBytes == nil || *vol.UsedBytes != 7 {
		t.Fatal("inlined volume fs fields must decode")
	}
	if s.Pods[0].PodRef.UID != "" {
		t.Fatal("absent podRef uid must stay empty")
	}
}
