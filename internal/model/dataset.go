package model

// Dataset is a full snapshot of every collection, used to seed a store
type Dataset struct {
	Hosts            []Host
	Inefficiencies   []InefficiencyRecord
	Metrics          []MetricRecord
	ChannelSummaries []ChannelSummary
	ChannelDetails   []ChannelDetail
	ChangeRecords    []ChangeRecord
}
