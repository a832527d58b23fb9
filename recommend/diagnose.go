package recommend

// Symptoms observed on a plant.
type Symptoms struct {
	FeuillesJaunes bool `json:"feuilles_jaunes"`
	TachesNoires   bool `json:"taches_noires"`
	SolHumide      bool `json:"sol_humide"`
	Fletrissement  bool `json:"fletrissement"`
}

// Urgency levels.
const (
	UrgenceFaible  = "🟢 Faible"
	UrgenceMoyenne = "⚠ Moyenne"
	UrgenceUrgent  = "🔴 Urgent"
)

// Diagnosis is the outcome of the symptom rules.
type Diagnosis struct {
	Diagnostic string `json:"diagnostic"`
	Conseils   string `json:"conseils"`
	Urgence    string `json:"urgence"`
}

// Diagnose applies the symptom rules in priority order; the first match wins.
func Diagnose(s Symptoms) Diagnosis {
	switch {
	case s.FeuillesJaunes && s.SolHumide:
		return Diagnosis{"Excès d'arrosage", "Réduire les arrosages et vérifier le drainage", UrgenceMoyenne}
	case s.FeuillesJaunes:
		return Diagnosis{"Manque de nutriments", "Appliquer un engrais équilibré", UrgenceFaible}
	case s.TachesNoires:
		return Diagnosis{"Maladie fongique", "Traiter avec un fongicide et isoler la plante", UrgenceUrgent}
	case s.Fletrissement:
		return Diagnosis{"Manque d'eau", "Arroser abondamment et surveiller", UrgenceMoyenne}
	default:
		return Diagnosis{"Aucun problème détecté", "Votre plante semble en bonne santé", UrgenceFaible}
	}
}
