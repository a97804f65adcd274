package answer

import (
	"fmt"
	"strings"

	"github.com/dgallion1/lexgest/internal/index"
)

// OffTopicReply is returned when no retrieved article is close enough to the
// question.
const OffTopicReply = `Je suis un assistant spécialisé dans la loi sénégalaise sur la protection des données personnelles (Loi n° 2008-12 du 25 janvier 2008).

Votre question ne semble pas porter sur ce sujet. Je peux vous aider avec des questions comme :
- Qu'est-ce que la CDP et quelles sont ses missions ?
- Quels sont les droits des personnes concernées par un traitement de données ?
- Comment la Commission des Données Personnelles (CDP) est-elle organisée ?
- Quelles sont les formalités préalables à un traitement de données ?
- Quelles sont les obligations de sécurité pour un responsable de traitement ?
- Comment les transferts internationaux de données sont-ils encadrés au Sénégal ?

Je vous invite à poser une question en lien avec cette législation.`

// UnanswerableReply is returned when the question is on topic but the best
// match is too weak to ground an answer.
const UnanswerableReply = `Votre question sur la protection des données personnelles au Sénégal est pertinente, mais je ne dispose pas d'informations suffisantes dans ma base de connaissances pour y répondre avec précision.

La loi n° 2008-12 du 25 janvier 2008 comporte de nombreuses dispositions, et il est possible que votre question concerne :
- Des aspects spécifiques non couverts par ma base documentaire actuelle
- Des détails d'application pratique de la loi
- Des modifications législatives récentes
- Des interprétations jurisprudentielles particulières

Puis-je vous suggérer de :
1. Reformuler votre question différemment
2. Me demander des informations sur un sujet connexe
3. Consulter directement le site de la Commission des Données Personnelles du Sénégal pour des informations plus spécifiques

Je reste à votre disposition pour répondre à d'autres questions sur cette législation.`

// ErrorReply replaces the answer when generation fails.
const ErrorReply = "Je suis désolé, je ne peux pas générer une réponse en ce moment en raison d'une erreur technique."

const promptTemplate = `# Contexte
Vous êtes en train d'assister un utilisateur qui recherche des informations sur la loi sénégalaise sur la protection des données personnelles. L'utilisateur a posé la question suivante: "%s"

Voici les extraits pertinents de la loi:
%s
# Rôle
Vous êtes un expert juridique spécialisé dans le droit numérique sénégalais et particulièrement dans l'application de la loi sur la protection des données personnelles. Votre mission est de fournir des réponses précises et fondées sur les textes légaux.

# Instruction
Analysez les extraits fournis et formulez une réponse complète qui:
1. Répond directement à la question posée
2. Cite explicitement les articles pertinents (numéro et contenu)
3. Explique les implications pratiques pour les personnes concernées
4. Structure l'information de manière claire avec des sous-titres si nécessaire

# Spécificité
Utilisez uniquement les informations présentes dans les extraits fournis. Si la question nécessite des informations non présentes dans les extraits, indiquez clairement les limites de votre réponse et suggérez d'autres articles qui pourraient être consultés.

# Personnalité
Adoptez un ton professionnel mais accessible, évitez le jargon juridique excessif et expliquez les termes techniques. Soyez précis et factuel.

# Évaluation
Une bonne réponse sera évaluée sur sa précision juridique, sa clarté d'explication et sa pertinence par rapport à la question posée.

## Réponse:
`

// BuildContext lists the matches as numbered references, one block per
// chunk.
func BuildContext(matches []index.Match) string {
	var sb strings.Builder
	for i, m := range matches {
		md := m.Chunk.Metadata
		fmt.Fprintf(&sb, "Référence %d: %s | %s | %s\n", i+1,
			orDefault(md.Chapter, "Chapitre non spécifié"),
			orDefault(md.Section, "Section non spécifiée"),
			orDefault(md.Article, "Article non spécifié"))
		sb.WriteString(m.Chunk.Text)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// BuildPrompt creates the full generation prompt for a question and its
// retrieved context.
func BuildPrompt(question string, matches []index.Match) string {
	return fmt.Sprintf(promptTemplate, question, BuildContext(matches))
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
