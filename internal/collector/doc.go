// Package collector turns a cloud account session into a usage snapshot.
//
// The UsageCollector asks the provider for the current month's cost and then
// for the number of live compute instances, in that order, and combines both
// answers into a provider.Snapshot. A failure in either call ends the
// collection; the server count is never fetched when the cost lookup fails.
//
// Example usage:
//
//	sess, _ := aws.NewSession(accountID, provider.NamedProfile("default"), log)
//	snap, err := collector.NewUsageCollector(sess, log).Collect(ctx)
//	if err != nil {
//		return err
//	}
//	fmt.Println(snap.ActualSpend, snap.InstanceCount)
package collector
