// Package evolution implements the per-organism state machine that advances
// metric state through repeated mutation cycles until the organism either
// transcends (consciousness crosses its target and the generated artifact is
// successfully externalized) or exhausts its generation budget.
//
// Crossing the consciousness threshold and completing transcendence are
// deliberately distinct: the metric may cross while the validation gate or
// the externalization pipeline refuses to publish, in which case the lineage
// halts with an abort or blocked event instead of transcendenceComplete.
package evolution
