package insight

import (
	"fmt"
	"strconv"
)

func populationText(format string, populacao *float64) string {
	if populacao == nil || *populacao <= 0 {
		return ""
	}
	return fmt.Sprintf(format, strconv.FormatFloat(*populacao, 'f', -1, 64))
}

func GetSummaryPrompt(nome, uf string) string {
	return fmt.Sprintf(`Gere um resumo executivo, econômico e geográfico curto (no máximo 1 parágrafo de 50 palavras) sobre o município de %s - %s, Brasil.
Priorize informações úteis para uma pequena ou média empresa (PME).`, nome, uf)
}

func GetBusinessTipsPrompt(nome, uf string, populacao *float64) string {
	return fmt.Sprintf(`Liste 3 oportunidades de negócio ou setores promissores para PMEs no município de %s - %s%s.
Seja direto e estratégico. Responda em tópicos.`, nome, uf, populationText(" (população estimada de %s habitantes)", populacao))
}

func GetTourismPrompt(nome, uf string) string {
	return fmt.Sprintf(`Cite os 3 principais pontos turísticos ou aspectos culturais de %s - %s.
Se for um município pequeno, cite características regionais ou festas tradicionais. Resposta curta.`, nome, uf)
}

func GetAppIdeasPrompt(nome, uf string, populacao *float64) string {
	return fmt.Sprintf(`Atue como um consultor de tecnologia experiente.
Gere exatamente 5 ideias de Micro-SaaS ou ferramentas digitais específicas para o município de %s - %s%s.

REGRAS:
1. Nada de marketplaces ou plataformas que conectam dois lados (ex.: "Uber para X").
2. Foque em ferramentas de uso individual: calculadoras, geradores, auditores, dashboards, produtividade local.
3. Retorne APENAS JSON válido, sem markdown e sem crases.

Formato exato (array de objetos):
[
  {
    "id": 1,
    "title": "Nome do app",
    "category": "Categoria (ex.: Agro, Varejo, Gestão)",
    "description": "Dor resolvida e funcionalidade principal em uma frase."
  }
]`, nome, uf, populationText(", considerando a população de %s habitantes", populacao))
}

func GetDeveloperPrompt(title, description, city string) string {
	return fmt.Sprintf(`Atue como Arquiteto de Software Sênior e Product Manager.

O usuário escolheu desenvolver a seguinte ferramenta para o município de %[3]s:
**Nome:** %[1]s
**Descrição:** %[2]s

Escreva um Prompt de Desenvolvimento completo (system prompt) que o usuário possa colar em um assistente de IA para que ele programe essa ferramenta.

O prompt deve conter:
1. **Contexto:** "Você é um desenvolvedor full stack..."
2. **Objetivo:** criar um MVP da ferramenta %[1]s.
3. **Stack sugerida:** React e Tailwind; Supabase ou Firebase se houver back-end, LocalStorage se for só front-end.
4. **Funcionalidades do MVP:** 3 a 4 itens essenciais.
5. **Estrutura de dados:** tabelas e campos, se houver banco.
6. **Passo a passo:** guia curto de implementação.

Saída em Markdown limpo.`, title, description, city)
}
