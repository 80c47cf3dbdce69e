package tristore

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "tristore"

// Metrics is an Observer that records index and loader activity as
// Prometheus metrics.
type Metrics struct {
	factsAdded     prometheus.Counter
	factDuplicates prometheus.Counter
	factsRemoved   prometheus.Counter
	resets         prometheus.Counter
	filesLoaded    prometheus.Counter
	filesFailed    prometheus.Counter
	triplesRead    prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	counter := func(subsystem, name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		})
	}
	m := &Metrics{
		factsAdded:     counter("index", "facts_added_total", "Facts inserted into the index"),
		factDuplicates: counter("index", "fact_duplicates_total", "Insertions ignored because the fact already existed"),
		factsRemoved:   counter("index", "facts_removed_total", "Facts removed by delete"),
		resets:         counter("index", "resets_total", "Times the index was cleared"),
		filesLoaded:    counter("loader", "files_loaded_total", "Triple files read successfully"),
		filesFailed:    counter("loader", "files_failed_total", "Triple files that could not be read"),
		triplesRead:    counter("loader", "triples_added_total", "New facts added by the loader"),
	}
	for _, c := range []prometheus.Collector{
		m.factsAdded, m.factDuplicates, m.factsRemoved, m.resets,
		m.filesLoaded, m.filesFailed, m.triplesRead,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RegisterIndexGauges exposes the live fact and subject counts of idx.
func RegisterIndexGauges(reg prometheus.Registerer, idx *TripleIndex) error {
	facts := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: "index",
		Name:      "facts",
		Help:      "Facts currently stored",
	}, func() float64 { return float64(idx.Len()) })
	subjects := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: "index",
		Name:      "subjects",
		Help:      "Subjects currently stored",
	}, func() float64 { return float64(len(idx.Subjects())) })
	if err := reg.Register(facts); err != nil {
		return err
	}
	return reg.Register(subjects)
}

// Metrics implements Observer.
func (m *Metrics) FactAdded(Fact)     { m.factsAdded.Inc() }
func (m *Metrics) FactDuplicate(Fact) { m.factDuplicates.Inc() }
func (m *Metrics) FactRemoved(Fact)   { m.factsRemoved.Inc() }
func (m *Metrics) IndexReset()        { m.resets.Inc() }

func (m *Metrics) FileLoaded(_ string, triples int) {
	m.filesLoaded.Inc()
	m.triplesRead.Add(float64(triples))
}

func (m *Metrics) FileFailed(string, error) { m.filesFailed.Inc() }
