package service

import "fmt"

func welcomeEmailTemplate(name, forumURL, appName string) (string, string) {
	subject := fmt.Sprintf("Bem-vindo(a) ao %s!", appName)
	body := fmt.Sprintf(`Olá %s,

Sua conta foi criada com sucesso.

Participe das conversas da comunidade: %s

Que a paz do Senhor esteja com você.

Equipe %s`, name, forumURL, appName)

	return subject, body
}
