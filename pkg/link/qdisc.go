package link

import (
	"github.com/sirupsen/logrus"

	"micronet/api"
	"micronet/pkg/topology"
)

// ApplyShaping installs the same netem profile on both endpoints of every
// link, so k links get 2k root qdiscs:
//
//	tc qdisc replace dev veth-1-2-0 root netem delay 10ms rate 1mbit loss 0%
func (lm *LinkManager) ApplyShaping(topo *topology.Topology, s api.Shaping) error {
	if s.BandwidthMbit < 0 || s.DelayMs < 0 || s.LossPercent < 0 {
		return api.Configf("negative shaping parameter: bandwidth %v mbit, delay %v ms, loss %v%%",
			s.BandwidthMbit, s.DelayMs, s.LossPercent)
	}
	if s.LossPercent > 100 {
		return api.Configf("loss %v%% is above 100%%", s.LossPercent)
	}

	for _, ep := range topo.Endpoints() {
		if err := lm.nc.ReplaceQdisc(ep.Node, ep.Name, s); err != nil {
			return api.EnvError("replace qdisc on "+ep.Name, ep.Node, err)
		}
	}
	logrus.Infof("shaped %d links: %v mbit, %v ms, %v%% loss",
		len(topo.Links()), s.BandwidthMbit, s.DelayMs, s.LossPercent)
	return nil
}
