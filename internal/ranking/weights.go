package ranking

// WeightFlags are the capability flags that drive weight derivation (spec
// §4.1 "Weight derivation"), kept as a pure-function input for easy testing
// per spec §9's suggestion to keep derivation "a pure function of the
// flags."
type WeightFlags struct {
	HasEngagedEmbeddings bool
	HasUsableTimePrefs   bool
	CardsShown           int
}

// DeriveWeights computes the six signal weights for one request, starting
// from BaseWeights and applying the capability-driven mutations in order,
// then normalizing to sum to 1.
func DeriveWeights(flags WeightFlags) Weights {
	w := BaseWeights

	if !flags.HasEngagedEmbeddings {
		w.Semantic = 0
		w.Engagement += 0.11
		w.Session += 0.08
		w.Exploration += 0.06
	}

	if !flags.HasUsableTimePrefs {
		w.TimePref = 0
		w.Engagement += 0.05
		w.Freshness += 0.05
	}

	if flags.CardsShown == 0 {
		session := w.Session
		w.Session = 0
		w.Freshness += session * 0.6
		w.Exploration += session * 0.4
	}

	if flags.CardsShown > 24 {
		moved := w.Exploration * 0.5
		w.Exploration -= moved
		w.Engagement += moved * 0.6
		w.Session += moved * 0.4
	}

	sum := w.Sum()
	if sum <= 0 {
		return BaseWeights
	}

	return Weights{
		Engagement:  w.Engagement / sum,
		Semantic:    w.Semantic / sum,
		Session:     w.Session / sum,
		TimePref:    w.TimePref / sum,
		Freshness:   w.Freshness / sum,
		Exploration: w.Exploration / sum,
	}
}
