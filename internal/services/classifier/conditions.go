package classifier

// Regime codes and labels shared by both classifier variants.
var conditionNames = map[int]string{
	0: "Strong Uptrend",
	1: "Weak Uptrend",
	2: "Sideways/Breakout",
	3: "Weak Downtrend",
	4: "Strong Downtrend",
	5: "High Volatility",
	6: "Low Volatility",
	7: "Reversal Potential",
}

// ConditionName maps a regime code to its label, or "Unknown".
func ConditionName(code int) string {
	if name, ok := conditionNames[code]; ok {
		return name
	}
	return "Unknown"
}
