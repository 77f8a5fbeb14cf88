// Package social implements the friend relationship between pairs of users.
//
// A relationship is stored twice, once on each user's record, and the two records are written by
// independent version-checked updates. [Machine] runs the five transitions (send, cancel, accept,
// decline, remove) through a paired commit: both records are re-read, the precondition is checked against
// both views, and the two records are written actor first. When the second write fails the pair is left
// half-applied; [Reconciler] re-derives the stale side from the side with the newer pair revision.
//
// Every transition stamps both records with the same per-pair revision, which is what lets reconciliation
// tell which side committed last without any cross-record transaction.
package social
