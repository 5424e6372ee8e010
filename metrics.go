package metaport

import (
	"reflect"
	"time"

	"github.com/viant/gmetric"
	"github.com/viant/gmetric/provider"
)

// Operation names under which import calls are counted.
const (
	MetricAssembly   = "metaport.assembly"
	MetricType       = "metaport.type"
	MetricMethod     = "metaport.method"
	MetricField      = "metaport.field"
	MetricDefinition = "metaport.definition"
)

type metricsLocation struct{}

func metricLocation() string {
	return reflect.TypeOf(metricsLocation{}).PkgPath()
}

// operation returns the counter for name, registering it on first use.
func operation(service *gmetric.Service, name string) *gmetric.Operation {
	if op := service.LookupOperation(name); op != nil {
		return op
	}
	return service.MultiOperationCounter(metricLocation(), name, name+" performance", time.Millisecond, time.Minute, 2, provider.NewBasic())
}

// begin starts timing a public import call. The returned function records
// the call's outcome; a non-nil error is counted as a failure.
func (e *Engine) begin(name string) func(err error) {
	if e.metrics == nil {
		return func(error) {}
	}
	onDone := operation(e.metrics, name).Begin(time.Now())
	return func(err error) {
		if err != nil {
			onDone(time.Now(), err)
			return
		}
		onDone(time.Now())
	}
}
