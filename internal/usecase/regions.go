package usecase

// Regions RF subyektlari, /setregion faqat shu ro'yxatdan qabul qiladi.
var Regions = []string{
	"Москва", "Московская область", "Санкт-Петербург", "Ленинградская область",
	"Белгородская область", "Брянская область", "Владимирская область", "Воронежская область",
	"Ивановская область", "Калужская область", "Костромская область", "Курская область",
	"Липецкая область", "Орловская область", "Рязанская область", "Смоленская область",
	"Тамбовская область", "Тверская область", "Тульская область", "Ярославская область",
	"Архангельская область", "Вологодская область", "Калининградская область",
	"Республика Карелия", "Республика Коми", "Мурманская область", "Ненецкий АО",
	"Новгородская область", "Псковская область",
	"Республика Адыгея", "Астраханская область", "Волгоградская область", "Республика Калмыкия",
	"Краснодарский край", "Республика Крым", "Ростовская область", "Севастополь",
	"Республика Дагестан", "Республика Ингушетия", "Кабардино-Балкарская Респ.",
	"Карачаево-Черкесская Респ.", "Республика Северная Осетия", "Ставропольский край",
	"Чеченская Республика",
	"Республика Башкортостан", "Кировская область", "Республика Марий Эл",
	"Республика Мордовия", "Нижегородская область", "Оренбургская область",
	"Пензенская область", "Пермский край", "Самарская область", "Саратовская область",
	"Республика Татарстан", "Удмуртская Республика", "Ульяновская область", "Чувашская Республика",
	"Курганская область", "Свердловская область", "Тюменская область", "Челябинская область",
	"Ханты-Мансийский АО", "Ямало-Ненецкий АО",
	"Республика Алтай", "Алтайский край", "Иркутская область", "Кемеровская область",
	"Красноярский край", "Новосибирская область", "Омская область", "Томская область",
	"Республика Тыва", "Республика Хакасия",
	"Амурская область", "Республика Бурятия", "Еврейская АО", "Забайкальский край",
	"Камчатский край", "Магаданская область", "Приморский край", "Республика Саха (Якутия)",
	"Сахалинская область", "Хабаровский край", "Чукотский АО",
}

// Cities is only used for hints; unknown settlements are accepted.
var Cities = []string{
	"Москва", "Санкт-Петербург", "Новосибирск", "Екатеринбург", "Казань",
	"Нижний Новгород", "Челябинск", "Самара", "Омск", "Ростов-на-Дону",
	"Уфа", "Красноярск", "Воронеж", "Пермь", "Волгоград",
	"Краснодар", "Саратов", "Тюмень", "Тольятти", "Ижевск",
	"Барнаул", "Ульяновск", "Иркутск", "Хабаровск", "Ярославль",
	"Владивосток", "Махачкала", "Томск", "Оренбург", "Кемерово",
	"Новокузнецк", "Рязань", "Астрахань", "Набережные Челны", "Пенза",
	"Липецк", "Тула", "Киров", "Чебоксары", "Калининград",
	"Брянск", "Курск", "Иваново", "Магнитогорск", "Улан-Удэ",
	"Тверь", "Ставрополь", "Нижний Тагил", "Белгород", "Архангельск",
	"Владимир", "Сочи", "Курган", "Смоленск", "Калуга",
	"Чита", "Орёл", "Волжский", "Череповец", "Владикавказ",
	"Мурманск", "Сургут", "Вологда", "Саранск", "Тамбов",
	"Стерлитамак", "Грозный", "Якутск", "Кострома", "Петрозаводск",
	"Комсомольск-на-Амуре", "Таганрог", "Нижневартовск", "Йошкар-Ола", "Братск",
	"Новороссийск", "Нальчик", "Сыктывкар", "Великий Новгород", "Псков",
	"Минск", "Алматы", "Астана", "Ташкент", "Бишкек", "Душанбе", "Ереван", "Тбилиси", "Баку",
}
